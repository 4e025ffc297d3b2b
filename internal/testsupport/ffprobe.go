package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// WriteFakeFFprobe writes an ffprobe stand-in to dir and returns its path.
// The stub matches its last argument against outputs.
func WriteFakeFFprobe(t testing.TB, dir string, outputs map[string]string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir fake ffprobe dir: %v", err)
	}

	urls := make([]string, 0, len(outputs))
	for url := range outputs {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	var script strings.Builder
	script.WriteString("#!/bin/sh\nfor last; do :; done\ncase \"$last\" in\n")
	for i, url := range urls {
		fmt.Fprintf(&script, "  %s)\n    cat <<'PROBE_%d'\n%s\nPROBE_%d\n    ;;\n", shellQuote(url), i, outputs[url], i)
	}
	script.WriteString("  *)\n    echo \"Connection refused: $last\" >&2\n    exit 1\n    ;;\nesac\n")

	path := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(path, []byte(script.String()), 0o755); err != nil {
		t.Fatalf("write fake ffprobe: %v", err)
	}
	return path
}

// ProbeJSON renders minimal ffprobe output for a stream with one video and
// one audio track.
func ProbeJSON(width, height int, codec string, bitrate, size int64) string {
	return fmt.Sprintf(`{"streams":[{"index":0,"codec_type":"video","codec_name":%q,"width":%d,"height":%d,"r_frame_rate":"24000/1001"},{"index":1,"codec_type":"audio","codec_name":"aac","channels":2}],"format":{"duration":"2640.000000","size":"%d","bit_rate":"%d"}}`,
		codec, width, height, size, bitrate)
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
