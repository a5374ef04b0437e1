// Package document holds the parsed form of one GraphQL operation together
// with the fragment definitions it can reach.
//
// A Document owns every AST node it points to. Documents produced by Parse or
// Clone never share nodes with each other, so a Document may be read from
// several goroutines once built and mutated by nobody.
package document
