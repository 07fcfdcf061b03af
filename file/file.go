package file

import (
	"path/filepath"
	"strings"
)

// SongName is the filename stem.
func SongName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CreateSongFileMap maps song names to paths. When two paths share a stem
// the later one wins.
func CreateSongFileMap(paths []string) map[string]string {
	res := make(map[string]string)
	for _, v := range paths {
		res[SongName(v)] = v
	}
	return res
}
