// Package loader reads the byte buffer handed to the decoder. Input is a raw
// code blob, optionally gzip compressed, or an i386 ELF image from which one
// section is extracted together with its load address.
package loader

import (
	"bytes"
	"compress/gzip"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
)

// DefaultSection is the ELF section decoded when none is requested.
const DefaultSection = ".text"

var (
	// ErrNotFound is returned when the input path does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrUnsupportedELF is returned for ELF images that are not 32-bit x86.
	ErrUnsupportedELF = errors.New("unsupported ELF image")
	// ErrNoSection is returned when the requested section is missing and
	// no executable segment can stand in for it.
	ErrNoSection = errors.New("section not found")
)

// Options control how a file is turned into a byte buffer.
type Options struct {
	Base    uint32 `json:"base" jsonschema:"title=Base Address,description=Address of the first byte of raw input"`
	Raw     bool   `json:"raw" jsonschema:"title=Raw,description=Treat ELF files as raw bytes"`
	Section string `json:"section,omitempty" jsonschema:"title=Section,description=ELF section to decode,default=.text"`
}

// Section locates the decoded bytes inside an ELF image.
type Section struct {
	Name          string
	VA, Off, Size uint64
}

// Image is a loaded input buffer.
type Image struct {
	Path       string
	Kind       string // "raw" or "elf"
	Code       []byte
	Base       uint32
	Section    Section // set for ELF input
	Compressed bool
}

// Load reads path in full and prepares it for decoding.
func Load(path string, opts Options) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("cannot read file: %w", err)
	}
	return Parse(path, data, opts)
}

// Parse prepares an in-memory buffer for decoding. name is only used in
// logs and in the returned Image.
func Parse(name string, data []byte, opts Options) (*Image, error) {
	data, compressed, err := decompress(data, name)
	if err != nil {
		return nil, err
	}

	if !opts.Raw && IsELF(data) {
		section := opts.Section
		if section == "" {
			section = DefaultSection
		}
		im, err := parseELF(data, section)
		if err != nil {
			return nil, err
		}
		im.Path = name
		im.Compressed = compressed
		slog.Debug("Loaded ELF section", "file", name, "section", im.Section.Name,
			"va", fmt.Sprintf("%#x", im.Section.VA), "size", im.Section.Size)
		return im, nil
	}

	return &Image{
		Path:       name,
		Kind:       "raw",
		Code:       data,
		Base:       opts.Base,
		Compressed: compressed,
	}, nil
}

// IsELF reports whether data starts with the ELF magic.
func IsELF(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == elf.ELFMAG
}

func parseELF(data []byte, name string) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 || f.Machine != elf.EM_386 {
		return nil, fmt.Errorf("%w: %s %s", ErrUnsupportedELF, f.Class, f.Machine)
	}

	if s := f.Section(name); s != nil && s.Type != elf.SHT_NOBITS {
		code, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("read section %s: %w", name, err)
		}
		return &Image{
			Kind:    "elf",
			Code:    code,
			Base:    uint32(s.Addr),
			Section: Section{s.Name, s.Addr, s.Offset, s.Size},
		}, nil
	}

	// Fallback if stripped: the first executable PT_LOAD segment.
	if name == DefaultSection {
		for _, p := range f.Progs {
			if p.Type != elf.PT_LOAD || p.Flags&elf.PF_X == 0 || p.Filesz == 0 {
				continue
			}
			end := p.Off + p.Filesz
			if end > uint64(len(data)) {
				return nil, fmt.Errorf("executable segment at %#x runs past end of file", p.Off)
			}
			return &Image{
				Kind:    "elf",
				Code:    data[p.Off:end],
				Base:    uint32(p.Vaddr),
				Section: Section{"LOAD(exec)", p.Vaddr, p.Off, p.Filesz},
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSection, name)
}

// decompress unwraps gzip input and returns other data as-is.
func decompress(data []byte, name string) ([]byte, bool, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, false, nil
	}

	slog.Debug("Detected gzip compression", "file", name)
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("gzip reader creation failed: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("gzip decompression failed: %w", err)
	}
	slog.Debug("Gzip decompression successful", "file", name,
		"original_size", len(data), "decompressed_size", len(out))
	return out, true, nil
}
