package deb

// FileEntry declares artifacts to install under a destination path.
type FileEntry struct {
	// Sources are candidate files in insertion order.
	Sources []string
	// Destination is the install path of the file, including its name.
	Destination string
}

// InstallRule installs one source file into the package.
type InstallRule struct {
	SourcePath string
	// DestinationDir is Destination without its trailing segment.
	DestinationDir string
	Destination    string
	FollowSymlinks bool
}

// TemplateFile is a file copied from the template tree into the package tree.
type TemplateFile struct {
	// SourcePath is relative to the template file system.
	SourcePath string
	// DestinationPath is an OS path inside the package tree.
	DestinationPath string
	// IsLifecycleScript marks files written with execute permissions.
	IsLifecycleScript bool
}
