package watcher

// FilesystemType is a coarse classification of the filesystem holding the
// watched file. Network and FUSE mounts rarely deliver inotify events, so
// the watcher polls on them.
type FilesystemType int

const (
	FSTypeUnknown FilesystemType = iota
	FSTypeLocal
	FSTypeNFS
	FSTypeSMB
	FSTypeSSHFS
	FSTypeFUSE
)

func (t FilesystemType) String() string {
	switch t {
	case FSTypeLocal:
		return "local"
	case FSTypeNFS:
		return "nfs"
	case FSTypeSMB:
		return "smb"
	case FSTypeSSHFS:
		return "sshfs"
	case FSTypeFUSE:
		return "fuse"
	default:
		return "unknown"
	}
}

// detectFilesystemTypeFunc is swapped out in tests.
var detectFilesystemTypeFunc = detectFilesystemType

// DetectFilesystemType classifies the filesystem holding path. The
// directory is inspected when the file does not exist yet.
func DetectFilesystemType(path string) FilesystemType {
	if path == "" {
		return FSTypeUnknown
	}
	return detectFilesystemTypeFunc(path)
}

func isRemoteFilesystem(t FilesystemType) bool {
	switch t {
	case FSTypeNFS, FSTypeSMB, FSTypeSSHFS, FSTypeFUSE:
		return true
	}
	return false
}
