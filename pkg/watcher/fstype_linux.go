//go:build linux

package watcher

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Magic numbers from statfs(2).
const (
	nfsSuperMagic  = 0x6969
	smbSuperMagic  = 0x517B
	cifsSuperMagic = 0xFF534D42
	smb2SuperMagic = 0xFE534D42
	fuseSuperMagic = 0x65735546
)

func detectFilesystemType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		if err := unix.Statfs(filepath.Dir(path), &st); err != nil {
			return FSTypeUnknown
		}
	}
	switch uint32(st.Type) {
	case nfsSuperMagic:
		return FSTypeNFS
	case smbSuperMagic, cifsSuperMagic, smb2SuperMagic:
		return FSTypeSMB
	case fuseSuperMagic:
		// sshfs is a FUSE filesystem and shares its magic number.
		return FSTypeFUSE
	}
	return FSTypeLocal
}
