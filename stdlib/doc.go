// Package stdlib is the default library module: native builtins plus a
// small prelude written in Lisp and evaluated by LoadDefaults.
//
// Natives:
//
//	car cdr cons eq atom pair? list? not
//	+ - * / < =
//	prin prinl read load
//
// Prelude: list null? length map append reverse nth.
package stdlib
