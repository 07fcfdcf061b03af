package store

import "fmt"

type DuplicateSongError struct {
	Name string
}

func (e *DuplicateSongError) Error() string {
	return fmt.Sprintf("song %q is already stored", e.Name)
}

type SongNotFoundError struct {
	Name string
}

func (e *SongNotFoundError) Error() string {
	return fmt.Sprintf("song %q not found", e.Name)
}

type RangeError struct {
	Song       string
	Start, End int
	Length     int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("frames [%d, %d) out of range for %q with %d frames", e.Start, e.End, e.Song, e.Length)
}
