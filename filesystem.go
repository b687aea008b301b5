package fatvfs

// A FileSystem is a single-user FAT volume on a BlockDevice. Every
// command runs to completion before the next one is accepted and
// reports only success or failure; output goes to the writer the
// implementation was constructed with.
type FileSystem interface {
	// Format wipes the device and creates an empty volume.
	Format() error
	// Create makes a new file whose contents are the next input line.
	Create(path string) error
	Cat(path string) error
	// Ls lists the working directory.
	Ls() error
	Cp(src, dst string) error
	Mv(src, dst string) error
	Rm(path string) error
	// Append adds the contents of src to the end of dst.
	Append(src, dst string) error
	Mkdir(path string) error
	Cd(path string) error
	Pwd() error
	Chmod(rights, path string) error
}
