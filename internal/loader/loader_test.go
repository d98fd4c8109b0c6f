package loader

import (
	"bytes"
	"compress/gzip"
	"debug/elf"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// buildELF assembles a minimal ELF image with a single .text section.
func buildELF(t *testing.T, machine elf.Machine, text []byte, addr uint32) []byte {
	t.Helper()

	const hdrSize, shSize = 52, 40
	strtab := []byte("\x00.text\x00.shstrtab\x00")
	textOff := uint32(hdrSize)
	strOff := textOff + uint32(len(text))
	shOff := strOff + uint32(len(strtab))

	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	hdr := elf.Header32{
		Ident:     ident,
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     addr,
		Shoff:     shOff,
		Ehsize:    hdrSize,
		Shentsize: shSize,
		Shnum:     3,
		Shstrndx:  2,
	}
	sections := []elf.Section32{
		{},
		{
			Name:      1,
			Type:      uint32(elf.SHT_PROGBITS),
			Flags:     uint32(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Addr:      addr,
			Off:       textOff,
			Size:      uint32(len(text)),
			Addralign: 1,
		},
		{
			Name:      7,
			Type:      uint32(elf.SHT_STRTAB),
			Off:       strOff,
			Size:      uint32(len(strtab)),
			Addralign: 1,
		},
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		t.Fatal(err)
	}
	buf.Write(text)
	buf.Write(strtab)
	if err := binary.Write(&buf, binary.LittleEndian, sections); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseRaw(t *testing.T) {
	code := []byte{0x55, 0x89, 0xe5, 0xc3}
	im, err := Parse("blob", code, Options{Base: 0x1000})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if im.Kind != "raw" || im.Base != 0x1000 || !bytes.Equal(im.Code, code) || im.Compressed {
		t.Errorf("unexpected image: %+v", im)
	}
}

func TestParseGzip(t *testing.T) {
	code := []byte{0x90, 0x90, 0xc3}
	im, err := Parse("blob.gz", gzipBytes(t, code), Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !im.Compressed || !bytes.Equal(im.Code, code) {
		t.Errorf("unexpected image: %+v", im)
	}
}

func TestParseELF(t *testing.T) {
	text := []byte{0x55, 0x89, 0xe5, 0x5d, 0xc3}
	data := buildELF(t, elf.EM_386, text, 0x8048000)

	tests := []struct {
		name     string
		opts     Options
		wantKind string
		wantBase uint32
		wantCode []byte
		wantErr  error
	}{
		{
			name:     "text section",
			opts:     Options{Base: 0x10},
			wantKind: "elf",
			wantBase: 0x8048000,
			wantCode: text,
		},
		{
			name:     "raw flag skips ELF parsing",
			opts:     Options{Raw: true, Base: 0x10},
			wantKind: "raw",
			wantBase: 0x10,
			wantCode: data,
		},
		{
			name:    "missing section",
			opts:    Options{Section: ".init"},
			wantErr: ErrNoSection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im, err := Parse("a.out", data, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if im.Kind != tt.wantKind || im.Base != tt.wantBase || !bytes.Equal(im.Code, tt.wantCode) {
				t.Errorf("got kind=%s base=%#x code=% x", im.Kind, im.Base, im.Code)
			}
		})
	}
}

func TestParseELFWrongMachine(t *testing.T) {
	data := buildELF(t, elf.EM_ARM, []byte{0x00}, 0)
	if _, err := Parse("arm.out", data, Options{}); !errors.Is(err, ErrUnsupportedELF) {
		t.Errorf("err = %v, want ErrUnsupportedELF", err)
	}
}

func TestParseGzippedELF(t *testing.T) {
	text := []byte{0xc3}
	data := gzipBytes(t, buildELF(t, elf.EM_386, text, 0x400))
	im, err := Parse("a.out.gz", data, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if im.Kind != "elf" || !im.Compressed || im.Base != 0x400 || !bytes.Equal(im.Code, text) {
		t.Errorf("unexpected image: %+v", im)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "code.bin")
	if err := os.WriteFile(path, []byte{0x90}, 0o644); err != nil {
		t.Fatal(err)
	}

	im, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if im.Path != path || len(im.Code) != 1 {
		t.Errorf("unexpected image: %+v", im)
	}

	if _, err := Load(filepath.Join(dir, "missing.bin"), Options{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
