// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/chip8/memory"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":        "0",
	"MEMORY_SIZE":   fmt.Sprintf("%#x", memory.MEMORY_SIZE),
	"PROGRAM_START": fmt.Sprintf("%#x", memory.PROGRAM_START),
}

// Assembler is a single pass macro assembler for the virtual CPU.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]uint16   // Map of jump labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	expansions int // Count of macro expansions, for @ label prefixes.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	invert := false
	if len(word) > 1 && word[0] == '~' {
		invert = true
		word = word[1:]
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 <= 0xffffffff && v64 >= -int64(0x80000000) {
		if v64 < 0 {
			value = uint32(0xffffffff + (v64 + 1))
		} else {
			value = uint32(v64)
		}
	}

	if invert {
		value = ^value
	}

	return
}

// byteOf returns an 8-bit value; negative values down to -128 wrap.
func (asm *Assembler) byteOf(word string) (value uint8, err error) {
	v32, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if v32 > 0xff && v32 < 0xffffff80 {
		err = ErrValueRange
		return
	}

	value = uint8(v32 & 0xff)
	return
}

// registerOf decodes a register name v0 through vf.
func registerOf(word string) (reg uint8, ok bool) {
	word = strings.ToLower(word)
	if len(word) != 2 || word[0] != 'v' {
		return
	}

	index, err := strconv.ParseUint(word[1:], 16, 4)
	if err != nil {
		return
	}

	return uint8(index), true
}

var labelRe = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)

// addrOf decodes a 12-bit address, or a label to be linked later.
func (asm *Assembler) addrOf(word string) (addr uint16, label string, err error) {
	if _, is_reg := registerOf(word); !is_reg && labelRe.MatchString(word) {
		label = word
		return
	}

	v32, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if v32 > 0xfff {
		err = ErrValueRange
		return
	}

	addr = uint16(v32)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(int(addr))
	}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(int(value32))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

var (
	charRe  = regexp.MustCompile(`'\\?[^']'`)
	parenRe = regexp.MustCompile(`\$\([^\$]*\)`)
)

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = charRe.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = parenRe.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	line = strings.ReplaceAll(line, ",", " ")
	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.ToLower(words[0]) == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]uint16, 16)
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansions++
		prefix := fmt.Sprintf("%v_%v_", name, asm.expansions)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", prefix)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddr gets the address of the next generated byte.
func (asm *Assembler) currentAddr() uint16 {
	if len(asm.Opcode) == 0 {
		return memory.PROGRAM_START
	}

	last := &asm.Opcode[len(asm.Opcode)-1]

	return last.Addr + uint16(last.Size())
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.expansions = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
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

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of jump labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		addr, ok := asm.Label[label]
		if !ok {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrLabelMissing(label)
			return
		}
		if len(op.Codes) < 1 || addr > 0xfff {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrValueRange
			return
		}
		linked := &op.Codes[len(op.Codes)-1]
		*linked = Code(uint16(*linked) | addr)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// aluMap maps the register-register ALU mnemonics.
var aluMap = map[string]CodeOp{
	"or":   OP_OR,
	"and":  OP_AND,
	"xor":  OP_XOR,
	"sub":  OP_SUB,
	"subn": OP_SUBN,
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var data []uint8
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words
	here := asm.currentAddr()

	defer func() {
		if err != nil || (len(codes) == 0 && len(data) == 0) {
			return
		}
		opcode := Opcode{LineNo: lineno, Addr: here, Words: initial_words, Codes: codes, Data: data, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	mnemonic := strings.ToLower(words[0])
	args := words[1:]

	// Lower case keyword operands; labels keep their case.
	keys := make([]string, len(args))
	for n, arg := range args {
		keys[n] = strings.ToLower(arg)
	}

	need := func(count int) bool {
		switch {
		case len(args) < count:
			err = ErrOpcodeMissing
		case len(args) > count:
			err = ErrOpcodeExtraArgs
		}
		return err == nil
	}

	switch mnemonic {
	case ".byte":
		if len(args) == 0 {
			err = ErrOpcodeMissing
			return
		}
		for _, arg := range args {
			var value uint8
			value, err = asm.byteOf(arg)
			if err != nil {
				return
			}
			data = append(data, value)
		}
	case ".word":
		if len(args) == 0 {
			err = ErrOpcodeMissing
			return
		}
		for _, arg := range args {
			var value uint32
			value, err = asm.valueOf(arg)
			if err != nil {
				return
			}
			if value > 0xffff {
				err = ErrValueRange
				return
			}
			data = append(data, uint8(value>>8), uint8(value&0xff))
		}
	case ".org":
		if !need(1) {
			return
		}
		var value uint32
		value, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if value > memory.MEMORY_SIZE {
			err = ErrValueRange
			return
		}
		if value < uint32(here) {
			err = ErrOrgBackwards
			return
		}
		data = make([]uint8, value-uint32(here))
	case "ret":
		if !need(0) {
			return
		}
		codes = append(codes, MakeCode(OP_RET))
	case "halt":
		// Conventional end of program: jump to self.
		if !need(0) {
			return
		}
		codes = append(codes, MakeCodeAddr(OP_JP, here))
	case "jp":
		if len(args) == 2 {
			if keys[0] != "v0" {
				err = ErrRegisterInvalid
				return
			}
			var addr uint16
			addr, label, err = asm.addrOf(args[1])
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeAddr(OP_JP_V0, addr))
			break
		}
		if !need(1) {
			return
		}
		var addr uint16
		addr, label, err = asm.addrOf(args[0])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeAddr(OP_JP, addr))
	case "call":
		if !need(1) {
			return
		}
		var addr uint16
		addr, label, err = asm.addrOf(args[0])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeAddr(OP_CALL, addr))
	case "se", "sne":
		if !need(2) {
			return
		}
		x, ok := registerOf(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		if y, ok := registerOf(args[1]); ok {
			if mnemonic == "sne" {
				err = ErrOpcodeInvalid
				return
			}
			codes = append(codes, MakeCodeRegReg(OP_SE_REG, x, y))
			break
		}
		var kk uint8
		kk, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		op := OP_SE_IMM
		if mnemonic == "sne" {
			op = OP_SNE_IMM
		}
		codes = append(codes, MakeCodeRegImm(op, x, kk))
	case "ld":
		if !need(2) {
			return
		}
		var code Code
		code, label, err = asm.parseLoad(keys, args)
		if err != nil {
			return
		}
		codes = append(codes, code)
	case "add":
		if !need(2) {
			return
		}
		if keys[0] == "i" {
			x, ok := registerOf(args[1])
			if !ok {
				err = ErrRegisterInvalid
				return
			}
			codes = append(codes, MakeCodeReg(OP_ADD_I, x))
			break
		}
		x, ok := registerOf(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		if y, ok := registerOf(args[1]); ok {
			codes = append(codes, MakeCodeRegReg(OP_ADD_REG, x, y))
			break
		}
		var kk uint8
		kk, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeRegImm(OP_ADD_IMM, x, kk))
	case "or", "and", "xor", "sub", "subn":
		if !need(2) {
			return
		}
		x, ok_x := registerOf(args[0])
		y, ok_y := registerOf(args[1])
		if !ok_x || !ok_y {
			err = ErrRegisterInvalid
			return
		}
		codes = append(codes, MakeCodeRegReg(aluMap[mnemonic], x, y))
	case "shr", "shl":
		if len(args) < 1 {
			err = ErrOpcodeMissing
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		x, ok := registerOf(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		var y uint8
		if len(args) == 2 {
			y, ok = registerOf(args[1])
			if !ok {
				err = ErrRegisterInvalid
				return
			}
		}
		op := OP_SHR
		if mnemonic == "shl" {
			op = OP_SHL
		}
		codes = append(codes, MakeCodeRegReg(op, x, y))
	case "rnd":
		if !need(2) {
			return
		}
		x, ok := registerOf(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		var kk uint8
		kk, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeRegImm(OP_RND, x, kk))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}

// parseLoad decodes the many forms of the ld mnemonic.
func (asm *Assembler) parseLoad(keys []string, args []string) (code Code, label string, err error) {
	switch keys[0] {
	case "i":
		var addr uint16
		addr, label, err = asm.addrOf(args[1])
		if err != nil {
			return
		}
		code = MakeCodeAddr(OP_LD_I, addr)
		return
	case "dt", "st", "b", "[i]":
		x, ok := registerOf(args[1])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		op := map[string]CodeOp{
			"dt":  OP_LD_DT_VX,
			"st":  OP_LD_ST_VX,
			"b":   OP_LD_B,
			"[i]": OP_LD_MEM_VX,
		}[keys[0]]
		code = MakeCodeReg(op, x)
		return
	}

	x, ok := registerOf(args[0])
	if !ok {
		err = ErrRegisterInvalid
		return
	}

	switch keys[1] {
	case "dt":
		code = MakeCodeReg(OP_LD_VX_DT, x)
	case "[i]":
		code = MakeCodeReg(OP_LD_VX_MEM, x)
	case "st", "b", "i":
		err = ErrOpcodeInvalid
	default:
		if y, ok := registerOf(args[1]); ok {
			code = MakeCodeRegReg(OP_LD_REG, x, y)
			return
		}
		var kk uint8
		kk, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		code = MakeCodeRegImm(OP_LD_IMM, x, kk)
	}

	return
}
