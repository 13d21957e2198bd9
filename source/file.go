package source

import (
	"context"
	"io"
	"os"
	"strconv"
)

// File reads a local file, versioned by its modification time
// (nanoseconds since the epoch, decimal). On filesystems that report no
// mtime every fetch behaves unconditionally.
type File struct {
	Path string
}

var _ Source = File{}

func (f File) Fetch(ctx context.Context) (string, []byte, error) {
	v, b, _, err := f.FetchIfNewer(ctx, "")
	return v, b, err
}

func (f File) FetchIfNewer(_ context.Context, version string) (string, []byte, bool, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return "", nil, false, err
	}
	defer fh.Close()

	// Stat the open handle so version and payload describe the same inode
	// even if the path is replaced mid-fetch.
	fi, err := fh.Stat()
	if err != nil {
		return "", nil, false, err
	}
	mtime := fi.ModTime().UnixNano()
	if version != "" {
		if prev, perr := strconv.ParseInt(version, 10, 64); perr == nil && mtime <= prev {
			return "", nil, false, nil
		}
	}

	b, err := io.ReadAll(fh)
	if err != nil {
		return "", nil, false, err
	}
	token := ""
	if !fi.ModTime().IsZero() {
		token = strconv.FormatInt(mtime, 10)
	}
	return token, b, true, nil
}

func (f File) String() string { return "file:" + f.Path }
