/*

Process of compilation

Program Text ->
	lex ->
Tokens ->
	front (parse, check, emit in one pass) ->
Stack Machine Code (ir) ->
	vm ->
Output

Listing and disassembly of the code are rendered by format and ir.

*/
package compiler
