package asm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/edsim/lc3kit/isa"
)

// Predefined system equates: the architecture constant table plus the
// current line number.
var sysEquate = func() map[string]string {
	m := map[string]string{"LINENO": "0"}
	for name, value := range isa.Defines() {
		m[name] = value
	}
	return m
}()

// Macro is a macro definition in the assembly source.
type Macro struct {
	LineNo int      // Line number of the first body line.
	Args   []string // Formal argument names.
	Lines  []string // Body lines to expand.
}

// Assembler turns source text into statements and statements into a
// load image.
type Assembler struct {
	Verbose bool              // If set, verbosely logs the assembler actions.
	Equate  map[string]string // Map of equates, predefines included.
	Macro   map[string]*Macro // Map of macros.

	predefine map[string]string
}

// Predefine defines an equate before parsing starts, or redefines an
// existing one.
func (a *Assembler) Predefine(name string, value string) {
	if a.predefine == nil {
		a.predefine = map[string]string{name: value}
	} else {
		a.predefine[name] = value
	}
}

var registerMap = map[string]isa.Register{
	"R0": 0, "R1": 1, "R2": 2, "R3": 3,
	"R4": 4, "R5": 5, "R6": 6, "R7": 7,
}

var opcodeMap = map[string]isa.Opcode{
	"ADD":  isa.OP_ADD,
	"AND":  isa.OP_AND,
	"NOT":  isa.OP_NOT,
	"LD":   isa.OP_LD,
	"LDI":  isa.OP_LDI,
	"LDR":  isa.OP_LDR,
	"LEA":  isa.OP_LEA,
	"ST":   isa.OP_ST,
	"STI":  isa.OP_STI,
	"STR":  isa.OP_STR,
	"JMP":  isa.OP_JMP,
	"JSR":  isa.OP_JSR,
	"JSRR": isa.OP_JSR,
	"RTI":  isa.OP_RTI,
	"TRAP": isa.OP_TRAP,
}

// Trap aliases assemble to TRAP with the assigned vector.
var trapAlias = map[string]isa.Word{
	"GETC":  isa.TRAP_GETC,
	"OUT":   isa.TRAP_OUT,
	"PUTS":  isa.TRAP_PUTS,
	"IN":    isa.TRAP_IN,
	"PUTSP": isa.TRAP_PUTSP,
	"HALT":  isa.TRAP_HALT,
}

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	charRe  = regexp.MustCompile(`'\\?[^']'`)
	parenRe = regexp.MustCompile(`\$\([^\$]*\)`)
)

// branchNZP decodes a BR mnemonic's condition suffix. A bare BR
// branches unconditionally.
func branchNZP(mnemonic string) (nzp isa.Word, ok bool) {
	suffix, found := strings.CutPrefix(mnemonic, "BR")
	if !found {
		return
	}
	if suffix == "" {
		return isa.FLAG_MASK, true
	}
	for _, r := range suffix {
		switch r {
		case 'N':
			nzp |= isa.FLAG_N
		case 'Z':
			nzp |= isa.FLAG_Z
		case 'P':
			nzp |= isa.FLAG_P
		default:
			return 0, false
		}
	}
	ok = true
	return
}

// isMnemonic reports whether a token names an instruction, a trap
// alias, or a directive, which is what separates it from a label.
func isMnemonic(word string) bool {
	u := strings.ToUpper(word)
	if _, ok := opcodeMap[u]; ok {
		return true
	}
	if _, ok := trapAlias[u]; ok {
		return true
	}
	if _, ok := branchNZP(u); ok {
		return true
	}
	return u == "RET" || strings.HasPrefix(u, ".")
}

// valueOf parses a numeric literal: #n decimal, xNN hex, or plain
// decimal. Unprefixed text is always base 10, so a leading zero does
// not turn a literal octal.
func (a *Assembler) valueOf(word string) (value int32, err error) {
	text := word
	base := 10
	switch {
	case strings.HasPrefix(text, "#"):
		text = text[1:]
	case strings.HasPrefix(text, "x"), strings.HasPrefix(text, "X"):
		text = text[1:]
		base = 16
	}
	v64, perr := strconv.ParseInt(text, base, 32)
	if perr != nil || v64 < -0x8000 || v64 > 0xFFFF {
		err = ErrParseNumber(word)
		return
	}
	value = int32(v64)
	return
}

// fitsSigned reports whether value is representable in a signed field
// of the given width.
func fitsSigned(value int32, bits uint) bool {
	limit := int32(1) << (bits - 1)
	return value >= -limit && value < limit
}

// register parses a register operand.
func register(word string) (reg isa.Register, err error) {
	reg, ok := registerMap[strings.ToUpper(word)]
	if !ok {
		err = ErrParseRegister(word)
	}
	return
}

// parenEval does compile-time $(...) evaluations.
func (a *Assembler) parenEval(expr string) (value int32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range a.Equate {
		v, verr := a.valueOf(str)
		if verr != nil {
			// Non-integer equates are invisible to expressions.
			continue
		}
		pred[key] = starlark.MakeInt(int(v))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	rcInt, ok := rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	rc64, ok := rcInt.Int64()
	if !ok || rc64 < -0x8000 || rc64 > 0xFFFF {
		err = ErrParseExpression(expr)
		return
	}
	value = int32(rc64)
	return
}

// stripComment removes a trailing ';' comment, honoring quoted
// strings and character literals.
func stripComment(text string) string {
	inStr, inChar, esc := false, false, false
	for n, r := range text {
		switch {
		case inStr:
			switch {
			case esc:
				esc = false
			case r == '\\':
				esc = true
			case r == '"':
				inStr = false
			}
		case inChar:
			switch {
			case esc:
				esc = false
			case r == '\\':
				esc = true
			case r == '\'':
				inChar = false
			}
		case r == '"':
			inStr = true
		case r == '\'':
			inChar = true
		case r == ';':
			return text[:n]
		}
	}
	return text
}

// fields splits a line into tokens on whitespace and commas, keeping
// quoted strings as single tokens.
func fields(line string) (words []string) {
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	inStr, esc := false, false
	for _, r := range line {
		switch {
		case inStr:
			cur.WriteRune(r)
			switch {
			case esc:
				esc = false
			case r == '\\':
				esc = true
			case r == '"':
				inStr = false
			}
		case r == '"':
			cur.WriteRune(r)
			inStr = true
		case r == ' ' || r == '\t' || r == ',':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return
}

// unquote decodes a quoted string token into its bytes.
func unquote(word string) (str []byte, err error) {
	if len(word) < 2 || word[0] != '"' || word[len(word)-1] != '"' {
		err = ErrStringSyntax
		return
	}
	body := word[1 : len(word)-1]

	esc := false
	out := make([]byte, 0, len(body))
	for n := 0; n < len(body); n++ {
		ch := body[n]
		if !esc {
			if ch == '\\' {
				esc = true
				continue
			}
			out = append(out, ch)
			continue
		}
		esc = false
		switch ch {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case '0':
			out = append(out, 0)
		case 'e':
			out = append(out, 0x1B)
		case '\\', '"', '\'':
			out = append(out, ch)
		default:
			err = ErrStringSyntax
			return
		}
	}
	if esc {
		err = ErrStringSyntax
		return
	}
	str = out
	return
}

// Parse reads source text into a statement list for Resolve. Parsing
// stops at .END; anything after it is ignored.
func (a *Assembler) Parse(input io.Reader) (stmts []Statement, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	a.Equate = maps.Clone(sysEquate)
	for name, value := range a.predefine {
		a.Equate[name] = value
	}
	a.Macro = map[string]*Macro{}

	for scanner.Scan() {
		lineno++
		line = strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}

		if a.Verbose {
			log.Printf("asm: %v: %v", lineno, line)
		}

		head := fields(line)
		if len(head) == 0 {
			continue
		}

		// .MACRO NAME arg...
		if strings.EqualFold(head[0], ".MACRO") {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(head) < 2 {
				err = ErrMacroSyntax
				return
			}
			if _, ok := a.Macro[head[1]]; ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{LineNo: lineno + 1}
			if len(head) > 2 {
				macro.Args = head[2:]
			}
			a.Macro[head[1]] = macro
			continue
		}
		if strings.EqualFold(head[0], ".ENDM") {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}
		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		var done bool
		done, err = a.parseInto(&stmts, line, lineno)
		if err != nil {
			return
		}
		if done {
			break
		}
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	err = scanner.Err()
	return
}

// expand parses a macro body with its arguments bound as equates. '@'
// in the body is prefixed with the macro name and the invocation line
// so labels inside macros stay unique across expansions.
func (a *Assembler) expand(stmts *[]Statement, name string, macro *Macro, args []string, lineno int) (err error) {
	if len(args) != len(macro.Args) {
		return ErrMacroSyntax
	}

	saved := maps.Clone(a.Equate)
	defer func() { a.Equate = saved }()
	for n, arg := range macro.Args {
		a.Equate[arg] = args[n]
	}

	for n, line := range macro.Lines {
		bodyNo := macro.LineNo + n
		line = strings.ReplaceAll(line, "@", fmt.Sprintf("%v_%v_", name, lineno))

		if _, perr := a.parseInto(stmts, line, bodyNo); perr != nil {
			return &ErrMacro{Macro: name, Line: bodyNo, Err: perr}
		}
	}
	return
}

// parseInto parses one comment-stripped line, appending the statements
// it produces. Equate and macro definitions yield no statement; a
// macro invocation may yield several.
func (a *Assembler) parseInto(stmts *[]Statement, line string, lineno int) (done bool, err error) {
	a.Equate["LINENO"] = strconv.Itoa(lineno)

	// Do 'x' evaluations.
	text := charRe.ReplaceAllStringFunc(line, func(word string) string {
		body := word[1 : len(word)-1]
		if body[0] == '\\' {
			switch body[1:] {
			case `\`:
				body = `\`
			case "n":
				body = "\n"
			case "r":
				body = "\r"
			case "t":
				body = "\t"
			case "e":
				body = "\033"
			case "0":
				body = "\000"
			default:
				return word
			}
		} else if len(body) != 1 {
			return word
		}
		return fmt.Sprintf("#%d", body[0])
	})

	// Do $() evaluations.
	text = parenRe.ReplaceAllStringFunc(text, func(expr string) string {
		value, perr := a.parenEval(expr[2 : len(expr)-1])
		if perr != nil {
			err = perr
		}
		return fmt.Sprintf("#%d", value)
	})
	if err != nil {
		return
	}

	words := fields(text)
	if len(words) == 0 {
		return
	}

	// .EQU NAME VALUE
	if strings.EqualFold(words[0], ".EQU") {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		if _, ok := a.Equate[words[1]]; ok {
			err = ErrEquateDuplicate
			return
		}
		a.Equate[words[1]] = words[2]
		return
	}

	// Equate substitution, quoted strings excepted.
	for n, word := range words {
		if strings.HasPrefix(word, `"`) {
			continue
		}
		if equate, ok := a.Equate[word]; ok {
			words[n] = equate
		}
	}

	// Macro invocation.
	if macro, ok := a.Macro[words[0]]; ok {
		err = a.expand(stmts, words[0], macro, words[1:], lineno)
		return
	}

	st := Statement{LineNo: lineno, Text: line}

	if !isMnemonic(words[0]) {
		label := strings.TrimSuffix(words[0], ":")
		if !identRe.MatchString(label) {
			err = ErrMnemonic(words[0])
			return
		}
		st.Label = label
		words = words[1:]
		if len(words) == 0 {
			st.Kind = KindLabel
			*stmts = append(*stmts, st)
			return
		}

		// Macro invocation after a label.
		if macro, ok := a.Macro[words[0]]; ok {
			st.Kind = KindLabel
			*stmts = append(*stmts, st)
			err = a.expand(stmts, words[0], macro, words[1:], lineno)
			return
		}
	}

	head := strings.ToUpper(words[0])
	args := words[1:]

	switch head {
	case ".ORIG":
		if len(args) != 1 {
			err = ErrOperandCount
			return
		}
		var value int32
		value, err = a.valueOf(args[0])
		if err != nil {
			return
		}
		if value < 0 {
			err = ErrRange{Value: value, Bits: 16}
			return
		}
		st.Kind = KindOrigin
		st.Value = value

	case ".END":
		done = true
		return

	case ".FILL":
		if len(args) != 1 {
			err = ErrOperandCount
			return
		}
		st.Kind = KindFill
		if value, verr := a.valueOf(args[0]); verr == nil {
			st.Value = value
		} else if identRe.MatchString(args[0]) {
			st.Sym = args[0]
		} else {
			err = ErrParseOperand(args[0])
			return
		}

	case ".BLKW":
		if len(args) != 1 {
			err = ErrOperandCount
			return
		}
		var value int32
		value, err = a.valueOf(args[0])
		if err != nil {
			return
		}
		if value < 0 {
			err = ErrBlockSize
			return
		}
		st.Kind = KindBlock
		st.Value = value

	case ".STRINGZ":
		if len(args) != 1 {
			err = ErrOperandCount
			return
		}
		st.Kind = KindString
		st.Str, err = unquote(args[0])

	default:
		var parsed Statement
		parsed, err = a.instruction(head, args)
		if err != nil {
			return
		}
		parsed.LineNo, parsed.Text, parsed.Label = st.LineNo, st.Text, st.Label
		st = parsed
	}
	if err != nil {
		return
	}

	*stmts = append(*stmts, st)
	return
}

// pcOperand parses a PC-relative operand: a numeric offset used as-is,
// or a label resolved in pass two.
func (a *Assembler) pcOperand(args []string, st *Statement, bits uint) (err error) {
	if len(args) != 1 {
		return ErrOperandCount
	}
	word := args[0]

	if value, verr := a.valueOf(word); verr == nil {
		if !fitsSigned(value, bits) {
			return ErrRange{Value: value, Bits: bits}
		}
		if bits == 11 {
			st.Inst.PCOff11 = int16(value)
		} else {
			st.Inst.PCOff9 = int16(value)
		}
		return nil
	}

	if !identRe.MatchString(word) {
		return ErrParseOperand(word)
	}
	st.Sym = word
	return nil
}

// instruction parses one mnemonic and its operand list.
func (a *Assembler) instruction(mnemonic string, args []string) (st Statement, err error) {
	st.Kind = KindInstruction
	inst := &st.Inst

	if nzp, ok := branchNZP(mnemonic); ok {
		inst.Op = isa.OP_BR
		inst.NZP = nzp
		err = a.pcOperand(args, &st, 9)
		return
	}

	if vector, ok := trapAlias[mnemonic]; ok {
		if len(args) != 0 {
			err = ErrOperandCount
			return
		}
		inst.Op = isa.OP_TRAP
		inst.Vector = vector
		return
	}

	switch mnemonic {
	case "ADD", "AND":
		if len(args) != 3 {
			err = ErrOperandCount
			return
		}
		inst.Op = opcodeMap[mnemonic]
		if inst.DR, err = register(args[0]); err != nil {
			return
		}
		if inst.SR1, err = register(args[1]); err != nil {
			return
		}
		if reg, rerr := register(args[2]); rerr == nil {
			inst.SR2 = reg
		} else {
			var value int32
			if value, err = a.valueOf(args[2]); err != nil {
				return
			}
			if !fitsSigned(value, 5) {
				err = ErrRange{Value: value, Bits: 5}
				return
			}
			inst.Imm = true
			inst.Imm5 = int16(value)
		}

	case "NOT":
		if len(args) != 2 {
			err = ErrOperandCount
			return
		}
		inst.Op = isa.OP_NOT
		if inst.DR, err = register(args[0]); err != nil {
			return
		}
		inst.SR1, err = register(args[1])

	case "LD", "LDI", "LEA", "ST", "STI":
		if len(args) != 2 {
			err = ErrOperandCount
			return
		}
		inst.Op = opcodeMap[mnemonic]
		if inst.DR, err = register(args[0]); err != nil {
			return
		}
		err = a.pcOperand(args[1:], &st, 9)

	case "LDR", "STR":
		if len(args) != 3 {
			err = ErrOperandCount
			return
		}
		inst.Op = opcodeMap[mnemonic]
		if inst.DR, err = register(args[0]); err != nil {
			return
		}
		if inst.BaseR, err = register(args[1]); err != nil {
			return
		}
		var value int32
		if value, err = a.valueOf(args[2]); err != nil {
			return
		}
		if !fitsSigned(value, 6) {
			err = ErrRange{Value: value, Bits: 6}
			return
		}
		inst.Off6 = int16(value)

	case "JMP":
		if len(args) != 1 {
			err = ErrOperandCount
			return
		}
		inst.Op = isa.OP_JMP
		inst.BaseR, err = register(args[0])

	case "RET":
		if len(args) != 0 {
			err = ErrOperandCount
			return
		}
		inst.Op = isa.OP_JMP
		inst.BaseR = 7

	case "JSR":
		inst.Op = isa.OP_JSR
		inst.Imm = true
		err = a.pcOperand(args, &st, 11)

	case "JSRR":
		if len(args) != 1 {
			err = ErrOperandCount
			return
		}
		inst.Op = isa.OP_JSR
		inst.BaseR, err = register(args[0])

	case "RTI":
		if len(args) != 0 {
			err = ErrOperandCount
			return
		}
		inst.Op = isa.OP_RTI

	case "TRAP":
		if len(args) != 1 {
			err = ErrOperandCount
			return
		}
		inst.Op = isa.OP_TRAP
		var value int32
		if value, err = a.valueOf(args[0]); err != nil {
			return
		}
		if value < 0 || value > 0xFF {
			err = ErrRange{Value: value, Bits: 8}
			return
		}
		inst.Vector = isa.Word(value)

	default:
		err = ErrMnemonic(mnemonic)
	}

	return
}
