package scan

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"

	sha256 "github.com/minio/sha256-simd"

	"github.com/bft-labs/fimsync/internal/domain"
)

// BuildEntry describes the object at path from its lstat info.
// Regular files are hashed; a read error leaves HashSHA256 empty.
func BuildEntry(path string, info fs.FileInfo, timestamp int64) domain.Entry {
	owner := ownerOf(info)
	attrs := domain.Attributes{
		Type:  entryType(info.Mode()),
		Size:  info.Size(),
		Perm:  info.Mode().Perm().String(),
		UID:   owner.uid,
		GID:   owner.gid,
		Inode: owner.inode,
		MTime: info.ModTime().Unix(),
	}
	if info.Mode().IsRegular() {
		attrs.HashSHA256, _ = hashFile(path)
	}
	attrs.Checksum = attributeChecksum(attrs)

	return domain.Entry{Path: path, Timestamp: timestamp, Attributes: attrs}
}

func entryType(mode fs.FileMode) string {
	switch {
	case mode.IsRegular():
		return domain.EntryTypeFile
	case mode.IsDir():
		return domain.EntryTypeDir
	case mode&fs.ModeSymlink != 0:
		return domain.EntryTypeSymlink
	default:
		return domain.EntryTypeOther
	}
}

// attributeChecksum is the SHA-1 hex of the colon-joined attributes. The
// collector rebuilds it from state messages, so the layout is fixed.
func attributeChecksum(a domain.Attributes) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s:%d:%s:%s:%s:%d:%d:%s",
		a.Type, a.Size, a.Perm, a.UID, a.GID, a.Inode, a.MTime, a.HashSHA256)))
	return hex.EncodeToString(sum[:])
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
