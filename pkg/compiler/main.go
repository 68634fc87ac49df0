// Package compiler provides the toyc lexer, parser, checker and code
// generator that targets RISC-V assembly text.
//
// Pipeline: toyc source → Lex → Parse → Check → Generate → RISC-V assembly text
package compiler
