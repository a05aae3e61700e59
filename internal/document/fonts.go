package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Font fuente TrueType capaz de dibujar escritura RTL
type Font struct {
	Name string
	Data []byte
}

// FontResolver devuelve la fuente a usar para texto RTL; nil, nil si no hay ninguna
type FontResolver interface {
	Resolve() (*Font, error)
}

// DefaultFontCandidates orden de preferencia de archivos de fuente
var DefaultFontCandidates = []string{
	"NotoNaskhArabic-Regular.ttf",
	"NotoSansHebrew-Regular.ttf",
	"Amiri-Regular.ttf",
	"ScheherazadeNew-Regular.ttf",
	"DejaVuSans.ttf",
	"tahoma.ttf",
	"Tahoma.ttf",
	"arial.ttf",
	"Arial.ttf",
}

// DirFontResolver busca los candidatos en los directorios configurados, en orden
type DirFontResolver struct {
	Dirs       []string
	Candidates []string
	fsys       func(name string) ([]byte, error)
}

func NewDirFontResolver(dirs []string) *DirFontResolver {
	return &DirFontResolver{Dirs: dirs, Candidates: DefaultFontCandidates, fsys: os.ReadFile}
}

func (r *DirFontResolver) Resolve() (*Font, error) {
	read := r.fsys
	if read == nil {
		read = os.ReadFile
	}

	for _, dir := range r.Dirs {
		for _, name := range r.Candidates {
			path := filepath.Join(dir, name)
			data, err := read(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read font %s: %w", path, err)
			}
			if len(data) == 0 {
				continue
			}
			return &Font{Name: name, Data: data}, nil
		}
	}
	return nil, nil
}

// NoFontResolver nunca encuentra fuente; el texto RTL se dibuja sin dar forma
type NoFontResolver struct{}

func (NoFontResolver) Resolve() (*Font, error) {
	return nil, nil
}

// StaticFontResolver devuelve siempre la misma fuente
type StaticFontResolver struct {
	Font *Font
}

func (r StaticFontResolver) Resolve() (*Font, error) {
	return r.Font, nil
}
