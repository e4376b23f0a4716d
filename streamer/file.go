package streamer

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/c360/boardkit/classify"
)

// fileStreamer writes one row per line to disk, buffered, synchronously.
// mods selects the on-disk encoding: "raw" writes IEEE-754 doubles
// big-endian with no separators, anything else (including "") writes
// whitespace-separated decimal text, one row per line — the same two
// encodings the board base's CSV/raw streamer dichotomy describes.
type fileStreamer struct {
	mu       sync.Mutex
	path     string
	mods     string
	numRows  int
	file     *os.File
	writer   *bufio.Writer
	destroyed bool
}

func newFileStreamer(dest, mods string, numRows int) (*fileStreamer, error) {
	if dest == "" {
		return nil, classify.WrapInvalid(classify.ErrInvalidConfig, "fileStreamer", "new", "empty file destination")
	}
	return &fileStreamer{path: dest, mods: mods, numRows: numRows}, nil
}

func (f *fileStreamer) Init() error {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return classify.WrapFatal(err, "fileStreamer", "Init", "open output file")
	}
	f.mu.Lock()
	f.file = file
	f.writer = bufio.NewWriter(file)
	f.mu.Unlock()
	return nil
}

// Stream writes row synchronously. File I/O is buffered so this is fast
// enough not to stall the acquisition goroutine under normal conditions;
// unlike the multicast streamer it has no background worker because a
// local file write is not subject to network-scheduling latency.
func (f *fileStreamer) Stream(row []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil || f.destroyed {
		return
	}

	if strings.EqualFold(f.mods, "raw") {
		buf := make([]byte, 8)
		for _, v := range row {
			binary.BigEndian.PutUint64(buf, math.Float64bits(v))
			_, _ = f.writer.Write(buf)
		}
		return
	}

	for i, v := range row {
		if i > 0 {
			_ = f.writer.WriteByte(' ')
		}
		fmt.Fprintf(f.writer, "%g", v)
	}
	_ = f.writer.WriteByte('\n')
}

func (f *fileStreamer) Equals(typ, dest, mods string) bool {
	return Type(typ) == TypeFile && dest == f.path && mods == f.mods
}

func (f *fileStreamer) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.destroyed {
		return nil
	}
	f.destroyed = true

	if f.writer != nil {
		_ = f.writer.Flush()
	}
	if f.file != nil {
		if err := f.file.Close(); err != nil {
			return classify.WrapTransient(err, "fileStreamer", "Destroy", "close output file")
		}
	}
	return nil
}
