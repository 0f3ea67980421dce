// Package elfwriter emits a minimal, self-bootstrapping ELF64 executable: a
// single PT_LOAD segment (no section headers at all) whose entry stub maps
// the data stack with a raw mmap syscall, guards the page past it with
// mprotect, calls the compiled program's entry function, and exits with its
// return value.
package elfwriter

import (
	"encoding/binary"

	"github.com/mna/sxcc/lang/codegen"
	"github.com/mna/sxcc/lang/ir"
)

const (
	vaddr     = 0x1000
	stackSize = 0x800000 // 8 MiB data stack
	guardSize = 0x1000   // one unreadable/unwritable page past the stack
)

// field records a placeholder's (size, offset) so it can be backfilled once
// its value is known.
type field struct {
	size int
	off  int
}

// Writer builds the ELF image incrementally: header and program header
// first (with placeholder fields), then the bootstrap stub and every
// function's machine code, then the filesize/memsize fields are backfilled.
type Writer struct {
	enc    *codegen.Encoder
	fields map[string]field
}

// NewWriter returns a Writer ready to emit a program's ELF image, padding
// function starts to alignment bytes (0 means the codegen default of 16).
func NewWriter(alignment int) *Writer {
	enc := codegen.NewEncoder()
	if alignment > 0 {
		enc.Alignment = alignment
	}
	return &Writer{enc: enc, fields: map[string]field{}}
}

func (w *Writer) buf() []byte { return w.enc.Buf }

func (w *Writer) append(b ...byte) { w.enc.Buf = append(w.enc.Buf, b...) }

func (w *Writer) f16(name string) {
	w.fields[name] = field{2, len(w.buf())}
	w.append(0, 0)
}
func (w *Writer) f32(name string) {
	w.fields[name] = field{4, len(w.buf())}
	w.append(0, 0, 0, 0)
}
func (w *Writer) f64(name string) {
	w.fields[name] = field{8, len(w.buf())}
	w.append(0, 0, 0, 0, 0, 0, 0, 0)
}

func (w *Writer) setf(name string, v uint64) {
	f := w.fields[name]
	switch f.size {
	case 2:
		binary.LittleEndian.PutUint16(w.enc.Buf[f.off:], uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(w.enc.Buf[f.off:], uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(w.enc.Buf[f.off:], v)
	}
}

func (w *Writer) i64(v int64) {
	w.enc.Buf = binary.LittleEndian.AppendUint64(w.enc.Buf, uint64(v))
}

func (w *Writer) elfHeader() {
	w.append(0x7F, 0x45, 0x4C, 0x46, 0x02, 0x01, 0x01, 0x00)
	w.append(0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)
	w.append(0x02, 0x00, 0x3E, 0x00, 0x01, 0x00, 0x00, 0x00) // e_type, e_machine, e_version
	w.f64("e_entry")
	w.f64("e_phoff")
	w.f64("e_shoff")
	w.f32("e_flags")
	w.f16("e_ehsize")
	w.f16("e_phentsize")
	w.f16("e_phnum")
	w.f16("e_shentsize")
	w.f16("e_shnum")
	w.f16("e_shstrndx")
	w.setf("e_phoff", uint64(len(w.buf())))
	w.setf("e_ehsize", uint64(len(w.buf())))
}

func (w *Writer) elfProgramHeader() {
	w.append(0x01, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00) // p_type=PT_LOAD, p_flags=R|X
	w.i64(0)                                                 // p_offset
	w.i64(vaddr)                                             // p_vaddr
	w.i64(vaddr)                                             // p_paddr, unused
	w.f64("p_filesz")
	w.f64("p_memsz")
	w.i64(0x1000) // p_align
}

func (w *Writer) elfBegin() {
	w.elfHeader()
	phdrStart := len(w.buf())
	w.elfProgramHeader()
	w.setf("e_phentsize", uint64(len(w.buf())-phdrStart))
	w.setf("e_phnum", 1)
	w.padding()
	w.setf("e_entry", uint64(vaddr+len(w.buf())))
}

func (w *Writer) elfEnd() {
	w.setf("p_filesz", uint64(len(w.buf())))
	w.setf("p_memsz", uint64(len(w.buf())))
}

// padding writes an int3 marker then fills to the next alignment boundary,
// to keep the bootstrap stub and function starts easy to find in a hexdump.
func (w *Writer) padding() {
	alignment := w.enc.Alignment
	if alignment <= 0 {
		alignment = 16
	}
	w.append(0xcc)
	for len(w.buf())%alignment != 0 {
		w.append(0xcc)
	}
}

// createStack emits the raw mmap syscall that reserves the data stack plus
// its guard page, and the mprotect syscall that revokes access to the guard
// page. The mmap/mprotect return values are not checked: a failed mapping
// crashes the bootstrap with a page fault instead of a clean diagnostic.
func (w *Writer) createStack(dataSize int32) {
	w.append(0xb8, 0x09, 0x00, 0x00, 0x00) // mov eax, 9 (mmap)
	w.append(0xbf, 0x00, 0x10, 0x00, 0x00) // mov edi, 4096 (addr)
	w.append(0x48, 0xc7, 0xc6)             // mov rsi, imm32 (len)
	w.enc.Buf = binary.LittleEndian.AppendUint32(w.enc.Buf, uint32(dataSize+guardSize))
	w.append(0xba, 0x03, 0x00, 0x00, 0x00)       // mov edx, 3 (PROT_READ|PROT_WRITE)
	w.append(0x41, 0xba, 0x22, 0x00, 0x00, 0x00) // mov r10d, 0x22 (MAP_PRIVATE|MAP_ANONYMOUS)
	w.append(0x49, 0x83, 0xc8, 0xff)             // or r8, -1 (fd = -1)
	w.append(0x4d, 0x31, 0xc9)                   // xor r9, r9 (offset = 0)
	w.append(0x0f, 0x05)                         // syscall
	w.append(0x48, 0x89, 0xc3)                   // mov rbx, rax

	w.append(0xb8, 0x0a, 0x00, 0x00, 0x00) // mov eax, 10 (mprotect)
	w.append(0x48, 0x8d, 0xbb)             // lea rdi, [rbx + dataSize]
	w.enc.Buf = binary.LittleEndian.AppendUint32(w.enc.Buf, uint32(dataSize))
	w.append(0xbe, 0x00, 0x10, 0x00, 0x00) // mov esi, 4096
	w.append(0x31, 0xd2)                   // xor edx, edx
	w.append(0x0f, 0x05)                   // syscall
}

func (w *Writer) codeEntry() {
	w.createStack(stackSize)
	w.enc.Buf = append(w.enc.Buf, 0xe8) // call main (rel32, patched below)
	w.enc.AddCallPatch(0, len(w.enc.Buf))
	w.enc.Buf = append(w.enc.Buf, 0, 0, 0, 0)
	w.append(0xb8, 0x3c, 0x00, 0x00, 0x00) // mov eax, 60 (exit)
	w.append(0x48, 0x8b, 0x3b)             // mov rdi, [rbx]
	w.append(0x0f, 0x05)                   // syscall
}

// Write emits the full ELF image for prog, whose function 0 is the entry
// point. alignment pads each function start to that many bytes (0 for the
// default of 16).
func Write(prog *ir.Program, alignment int) []byte {
	w := NewWriter(alignment)
	w.elfBegin()
	w.codeEntry()
	for _, fn := range prog.Funcs {
		w.enc.Func(fn)
	}
	w.enc.CodeEnd()
	w.elfEnd()
	return w.enc.Buf
}
