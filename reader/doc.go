// Package reader turns Lisp source text into slab cells.
//
// The scanner is streaming: Read consumes only as much input as the next
// top-level form needs, which keeps an interactive reader from blocking on
// lines that have not been typed yet.
//
// Recognized syntax:
//
//	(a b c)   proper list
//	(a . b)   dotted pair
//	'x        (quote x)
//	"abc"     list of characters
//	#\a       character; #\space #\newline #\tab #\return #\nul
//	T NIL _   true, nil, wildcard
//	-12       number
//	; ...     comment to end of line
package reader
