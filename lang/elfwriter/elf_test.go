package elfwriter

import (
	"encoding/binary"
	"testing"

	"github.com/mna/sxcc/lang/irgen"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string) []byte {
	t.Helper()
	prog, err := irgen.CompileMain(src)
	require.NoError(t, err)
	return Write(prog, 16)
}

func TestELFMagicAndHeaderFields(t *testing.T) {
	img := compile(t, "1")

	require.Equal(t, []byte{0x7f, 'E', 'L', 'F', 0x02, 0x01, 0x01, 0x00}, img[:8])
	require.Equal(t, uint16(2), binary.LittleEndian.Uint16(img[16:18]))    // e_type = ET_EXEC
	require.Equal(t, uint16(0x3e), binary.LittleEndian.Uint16(img[18:20])) // e_machine = EM_X86_64

	phoff := binary.LittleEndian.Uint64(img[32:40])
	phnum := binary.LittleEndian.Uint16(img[56:58])
	require.EqualValues(t, 1, phnum)

	pType := binary.LittleEndian.Uint32(img[phoff:])
	require.EqualValues(t, 1, pType) // PT_LOAD
	pFlags := binary.LittleEndian.Uint32(img[phoff+4:])
	require.EqualValues(t, 5, pFlags) // R|X

	filesz := binary.LittleEndian.Uint64(img[phoff+32:])
	memsz := binary.LittleEndian.Uint64(img[phoff+40:])
	require.Equal(t, filesz, memsz)
	require.EqualValues(t, len(img), filesz)
}

func TestELFEntryPointWithinImage(t *testing.T) {
	img := compile(t, "(+ 1 2)")

	entry := binary.LittleEndian.Uint64(img[24:32])
	require.Greater(t, entry, uint64(vaddr))
	require.Less(t, entry, uint64(vaddr+len(img)))
}

func TestELFAlignmentConfigurable(t *testing.T) {
	prog, err := irgen.CompileMain("1")
	require.NoError(t, err)

	small := Write(prog, 4)
	large := Write(prog, 64)
	require.NotEqual(t, len(small), len(large))
}
