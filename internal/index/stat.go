// internal/index/stat.go
package index

import (
	"os"
	"syscall"

	"drift/internal/object"
)

// NewEntry builds an index entry for a staged path, capturing the stat
// cache from the file info.
func NewEntry(path string, fi os.FileInfo, mode object.Mode, oid object.OID) *Entry {
	e := &Entry{
		Path:  path,
		Mode:  mode,
		OID:   oid,
		Size:  fi.Size(),
		Mtime: fi.ModTime().Unix(),
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		e.Ctime = st.Ctim.Sec
		e.Dev = uint64(st.Dev)
		e.Ino = uint64(st.Ino)
		e.UID = st.Uid
		e.GID = st.Gid
	}
	return e
}
