//go:build unix

package scan

import (
	"io/fs"
	"strconv"
	"syscall"
)

type owner struct {
	uid, gid string
	inode    uint64
}

func ownerOf(info fs.FileInfo) owner {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return owner{}
	}
	return owner{
		uid:   strconv.FormatUint(uint64(st.Uid), 10),
		gid:   strconv.FormatUint(uint64(st.Gid), 10),
		inode: uint64(st.Ino),
	}
}
