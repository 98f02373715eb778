/*
Package compiler is the pipeline around the wide integer expansion.

LLVM Text (.ll) ->
	llimport ->
Intermediate Representation (ir) ->
	analyze.Input ->
	expand ->
	analyze.Output ->
Legal ir (no integers wider than 64 bits) ->
	format ->
LLVM-like Text

eval interprets ir before and after the expansion
so both can be compared bit by bit.

*/
package compiler
