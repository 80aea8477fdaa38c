package asm

import (
	"errors"

	"github.com/edsim/lc3kit/translate"
)

var f = translate.From

var (
	ErrOriginMissing   = errors.New(f(".ORIG missing"))
	ErrOriginDuplicate = errors.New(f(".ORIG duplicated"))
	ErrEquateSyntax    = errors.New(f(".EQU syntax"))
	ErrEquateDuplicate = errors.New(f(".EQU duplicated"))
	ErrOperandCount    = errors.New(f("operand count"))
	ErrMacroSyntax     = errors.New(f(".MACRO syntax"))
	ErrMacroNesting    = errors.New(f(".MACRO in .MACRO prohibited"))
	ErrMacroDuplicate  = errors.New(f(".MACRO duplicated"))
	ErrMacroLonely     = errors.New(f(".MACRO without .ENDM"))
	ErrMacroLonelyEndm = errors.New(f(".ENDM without .MACRO"))
	ErrStringSyntax    = errors.New(f("string syntax"))
	ErrBlockSize       = errors.New(f("block size invalid"))
	ErrImageTooBig     = errors.New(f("image exceeds memory"))
)

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseRegister string

func (err ErrParseRegister) Error() string {
	return f("'%v' is not a register", string(err))
}

type ErrParseOperand string

func (err ErrParseOperand) Error() string {
	return f("'%v' is not a value, register or label", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMnemonic string

func (err ErrMnemonic) Error() string {
	return f("'%v' is not an instruction or directive", string(err))
}

// ErrLabelDuplicate names the label and both defining lines.
type ErrLabelDuplicate struct {
	Label         string
	First, Second int
}

func (err ErrLabelDuplicate) Error() string {
	return f("label %v on line %d already defined on line %d", err.Label, err.Second, err.First)
}

// ErrSymbolMissing is an operand naming a label no statement defines.
type ErrSymbolMissing string

func (err ErrSymbolMissing) Error() string {
	return f("label %v missing", string(err))
}

// ErrMacro locates an error inside a macro expansion.
type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err)
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}

// ErrRange is an immediate or offset that does not fit its field.
type ErrRange struct {
	Value int32
	Bits  uint
}

func (err ErrRange) Error() string {
	return f("value %v does not fit in %v bits", err.Value, err.Bits)
}

func (err ErrRange) Is(target error) (ok bool) {
	_, ok = target.(ErrRange)
	return
}
