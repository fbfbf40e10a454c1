package texture

import (
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// ErrTypeTexture tags errors returned by the texture package.
const ErrTypeTexture = "texture"

// Source resolves a texture name to encoded image bytes.
type Source interface {
	// Open locates the named image.
	//
	// Parameters:
	//   - name: the resource name, relative to the source
	//
	// Returns:
	//   - common.ImageSource: the image, ready to decode
	//   - error: error if the image does not exist
	Open(name string) (common.ImageSource, error)
}

// DirSource reads images from a directory tree.
type DirSource struct {
	Root string
}

func (s DirSource) Open(name string) (common.ImageSource, error) {
	path := filepath.Join(s.Root, filepath.FromSlash(name))
	info, err := os.Stat(path)
	if err != nil {
		return common.ImageSource{}, errors.New("texture file not found").
			WithType(ErrTypeTexture).
			WithTag("path", path).
			Wrap(err)
	}
	if info.IsDir() {
		return common.ImageSource{}, errors.New("texture path is a directory").
			WithType(ErrTypeTexture).
			WithTag("path", path)
	}
	return common.ImageSource{Path: path}, nil
}

// MemorySource serves encoded PNG or JPEG images held in memory, keyed by name.
type MemorySource map[string][]byte

func (s MemorySource) Open(name string) (common.ImageSource, error) {
	data, ok := s[name]
	if !ok || len(data) == 0 {
		return common.ImageSource{}, errors.New("texture not in memory source").
			WithType(ErrTypeTexture).
			WithTag("name", name)
	}
	return common.ImageSource{Data: data}, nil
}

// MultiSource tries each source in order and returns the first image found.
type MultiSource []Source

func (s MultiSource) Open(name string) (common.ImageSource, error) {
	var last error
	for _, src := range s {
		img, err := src.Open(name)
		if err == nil {
			return img, nil
		}
		last = err
	}
	if last == nil {
		last = errors.New("texture source is empty").WithType(ErrTypeTexture)
	}
	return common.ImageSource{}, errors.New("texture not found in any source").
		WithType(ErrTypeTexture).
		WithTag("name", name).
		Wrap(last)
}
