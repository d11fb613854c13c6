// Package compiler implements spec.md §4.1's transpiler backend contract,
// §4.7's compile coordinator, and the §3 data model (BuildSet, BuildGroup,
// CompiledFile) that backs both.
package compiler

import "time"

// SourcePath is the absolute path of a source file the user authored.
type SourcePath = string

// GroupRoot is the absolute path of the nearest package root enclosing a
// SourcePath — the directory containing its package.json.
type GroupRoot = string

// CompiledFile is spec.md §3's CompiledFile record.
type CompiledFile struct {
	SourcePath SourcePath
	GroupRoot  GroupRoot
	OutputPath string // staged path under the session's staging tree
	OutputCode string // in-memory body, mirroring OutputPath's contents
	CompiledAt time.Time
}

// BuildGroup is spec.md §3's BuildGroup: a SourcePath -> CompiledFile
// mapping plus the GroupRoot identifying it. Every CompiledFile in Files
// shares Root as its GroupRoot (enforced by BuildSet.Put).
type BuildGroup struct {
	Root  GroupRoot
	Files map[SourcePath]*CompiledFile
}
