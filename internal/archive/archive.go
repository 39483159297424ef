// Package archive packs a package instance directory — the artifacts and
// manifest.json written by the install writer — into a content-addressable
// OCI-style tar layer, and compares two such snapshots while ignoring
// timestamps. It backs the installer's stage-then-publish step.
package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	ociv1 "github.com/google/go-containerregistry/pkg/v1"
	ociv1tarball "github.com/google/go-containerregistry/pkg/v1/tarball"
)

// Ownership pins the uid/gid recorded in a snapshot's tar headers, so that
// two snapshots taken under different invoking users still compare equal.
type Ownership struct {
	UID, GID     int
	UName, GName string
}

var defaultOwnership = Ownership{UName: "root", GName: "root"}

// SnapshotDir packs dirname into a single-layer OCI tar archive. Timestamps
// are clamped to clampTime so that re-running a build that produces
// byte-identical files also produces a byte-identical snapshot.
func SnapshotDir(dirname string, clampTime time.Time, own *Ownership) (ociv1.Layer, error) {
	if own == nil {
		own = &defaultOwnership
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	var seen []struct {
		name string
		info fs.FileInfo
	}

	err := filepath.Walk(dirname, func(filename string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		name, err := filepath.Rel(dirname, filename)
		if err != nil {
			return err
		}
		name = filepath.ToSlash(name)
		if name == "." {
			return nil
		}
		defer func() {
			seen = append(seen, struct {
				name string
				info fs.FileInfo
			}{name, info})
		}()

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = name
		header.Uid, header.Uname = own.UID, own.UName
		header.Gid, header.Gname = own.GID, own.GName

		for _, prior := range seen {
			if os.SameFile(prior.info, info) {
				header.Typeflag = tar.TypeLink
				header.Linkname = prior.name
				break
			}
		}
		if header.Typeflag == tar.TypeSymlink {
			header.Linkname, err = os.Readlink(filename)
			if err != nil {
				return err
			}
		}
		clamp(&header.ModTime, clampTime)
		clamp(&header.AccessTime, clampTime)
		clamp(&header.ChangeTime, clampTime)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if header.Typeflag == tar.TypeReg {
			f, err := os.Open(filename)
			if err != nil {
				return err
			}
			_, copyErr := io.Copy(tw, f)
			closeErr := f.Close()
			if copyErr != nil {
				return copyErr
			}
			if closeErr != nil {
				return closeErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	bs := buf.Bytes()
	return ociv1tarball.LayerFromOpener(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(bs)), nil
	})
}

func clamp(t *time.Time, limit time.Time) {
	if t.After(limit) {
		*t = limit
	}
}

// WriteTo streams layer's uncompressed content to dst, for writing a staged
// snapshot out to the package store.
func WriteTo(layer ociv1.Layer, dst io.Writer) (err error) {
	r, err := layer.Uncompressed()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(dst, r)
	return err
}

// Equal reports whether two snapshots contain the same entries with the
// same content, ignoring timestamps.
func Equal(a, b ociv1.Layer) (bool, error) {
	aEntries, err := listing(a)
	if err != nil {
		return false, err
	}
	bEntries, err := listing(b)
	if err != nil {
		return false, err
	}
	if len(aEntries) != len(bEntries) {
		return false, nil
	}
	for name, aHdr := range aEntries {
		bHdr, ok := bEntries[name]
		if !ok {
			return false, nil
		}
		if !headersEqualExceptTime(aHdr.header, bHdr.header) {
			return false, nil
		}
		if !bytes.Equal(aHdr.body, bHdr.body) {
			return false, nil
		}
	}
	return true, nil
}

type entry struct {
	header tar.Header
	body   []byte
}

func listing(layer ociv1.Layer) (map[string]entry, error) {
	r, err := layer.Uncompressed()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out := make(map[string]entry)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		out[path.Clean(hdr.Name)] = entry{header: *hdr, body: body}
	}
	return out, nil
}

func headersEqualExceptTime(a, b tar.Header) bool {
	a.ModTime, b.ModTime = time.Time{}, time.Time{}
	a.AccessTime, b.AccessTime = time.Time{}, time.Time{}
	a.ChangeTime, b.ChangeTime = time.Time{}, time.Time{}
	return a.Name == b.Name && a.Typeflag == b.Typeflag && a.Mode == b.Mode &&
		a.Size == b.Size && a.Linkname == b.Linkname
}
