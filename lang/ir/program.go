package ir

import "fmt"

// Funcode is the compiled form of one function: its code stream and its
// label table (label id -> instruction index, -1 while unresolved).
type Funcode struct {
	Name   string
	Level  int
	Code   []Instruction
	Labels []int
}

// NewLabel allocates a fresh, as-yet-unbound label id.
func (f *Funcode) NewLabel() int {
	f.Labels = append(f.Labels, -1)
	return len(f.Labels) - 1
}

// SetLabel binds label l to the current end of the code stream.
func (f *Funcode) SetLabel(l int) {
	f.Labels[l] = len(f.Code)
}

// Emit appends an instruction and returns its index.
func (f *Funcode) Emit(in Instruction) int {
	f.Code = append(f.Code, in)
	return len(f.Code) - 1
}

// AllLabelsBound reports whether every label has been bound to a code
// position — the IR-level half of the "label binding" testable property.
func (f *Funcode) AllLabelsBound() bool {
	for _, pos := range f.Labels {
		if pos < 0 {
			return false
		}
	}
	return true
}

// Program is the full compiled unit: every function, index 0 is always the
// entry point ("main").
type Program struct {
	Funcs []*Funcode
}

// DumpText renders the program in textual form: one `func<i>:` section per
// function, `L<k>:` lines positioned immediately before the instruction
// they label, and one four-space-indented instruction per line.
func (p *Program) DumpText() string {
	var out []string
	for i, fn := range p.Funcs {
		out = append(out, fmt.Sprintf("func%d:", i))
		pos2labels := map[int][]int{}
		for label, pos := range fn.Labels {
			pos2labels[pos] = append(pos2labels[pos], label)
		}
		for pos, in := range fn.Code {
			for _, label := range pos2labels[pos] {
				out = append(out, fmt.Sprintf("L%d:", label))
			}
			out = append(out, "    "+in.String())
		}
		// A label bound exactly at the end of the code (e.g. a loop/if whose
		// final label falls after the last instruction) still needs a line.
		for _, label := range pos2labels[len(fn.Code)] {
			out = append(out, fmt.Sprintf("L%d:", label))
		}
		out = append(out, "")
	}
	return joinLines(out)
}

func joinLines(lines []string) string {
	s := ""
	for i, l := range lines {
		if i > 0 {
			s += "\n"
		}
		s += l
	}
	return s
}
