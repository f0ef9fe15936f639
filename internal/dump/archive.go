package dump

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// Document - one XML member of a dump archive.
type Document struct {
	Name string
	Data []byte
}

// ReadArchive - XML members of an in-memory zip, signatures are ignored.
func ReadArchive(data []byte) ([]Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: zip: %w", ErrParse, err)
	}

	var docs []Document

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".xml") {
			continue
		}

		b, err := readMember(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrParse, f.Name, err)
		}

		docs = append(docs, Document{Name: f.Name, Data: b})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no xml in archive", ErrParse)
	}

	return docs, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}

	defer rc.Close()

	return io.ReadAll(rc)
}
