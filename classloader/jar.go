package classloader

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// readJarEntry extracts one entry's bytes from a .jar root on fs. The
// engine does not interpret a jar's MANIFEST.MF or module-info.class
// (spec ยง1 scopes module resolution out); it only needs random-access
// reads of individual class entries, which is all archive/zip is asked
// to do here -- no pack library models JVM jar semantics specifically.
func readJarEntry(fs afero.Fs, jarPath, entryPath string) ([]byte, error) {
	f, err := fs.Open(jarPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", jarPath, err)
	}
	for _, zf := range zr.File {
		if zf.Name == entryPath {
			rc, err := zf.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%s: entry %s not found", jarPath, entryPath)
}
