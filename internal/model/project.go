package model

// Path represents a file system path.
type Path string

// SourceFile is a Noir source file within a project. Both the absolute
// location and the project-relative path are cached because artifacts must
// only ever mention the relative form.
type SourceFile struct {
	// RelPath is the path relative to the project root (e.g. "src/main.nr").
	RelPath string

	// AbsPath is the absolute path on disk.
	AbsPath string
}

// ProjectOverview is the high-level summary shown by the scan command.
type ProjectOverview struct {
	Root          string
	NrFiles       int
	TestFiles     int
	TestFunctions int
	CodeLines     int
	TestLines     int
	NonTestLines  int
	TestCodeRatio float64
}

// Project describes a loaded Noir project.
type Project struct {
	// Root is the absolute path of the project directory.
	Root Path

	// Name is the package name declared in Nargo.toml.
	Name string

	// CompilerVersion is the compiler_version pin from Nargo.toml, if any.
	CompilerVersion string

	// Sources lists the project's .nr files ordered by relative path.
	Sources []SourceFile
}
