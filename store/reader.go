package store

import (
	"database/sql"

	"github.com/jsphweid/tunator/chord"
	"github.com/jsphweid/tunator/model"
	"github.com/pkg/errors"
)

// Reader answers queries inside a Store.View session. The zero Reader is an
// empty store.
type Reader struct {
	db *sql.DB
}

func (r *Reader) Has(name string) (bool, error) {
	if r.db == nil {
		return false, nil
	}
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM songs WHERE name = ?", name).Scan(&n); err != nil {
		return false, errors.Wrapf(err, "looking up %v", name)
	}
	return n > 0, nil
}

func (r *Reader) Info(name string) (model.SongInfo, error) {
	info := model.SongInfo{Name: name}
	if r.db == nil {
		return info, &SongNotFoundError{Name: name}
	}
	err := r.db.QueryRow("SELECT key, length, spacing FROM songs WHERE name = ?", name).
		Scan(&info.Key, &info.Length, &info.Spacing)
	if errors.Is(err, sql.ErrNoRows) {
		return info, &SongNotFoundError{Name: name}
	}
	if err != nil {
		return info, errors.Wrapf(err, "reading %v", name)
	}
	return info, nil
}

func (r *Reader) SongLength(name string) (int, error) {
	info, err := r.Info(name)
	return info.Length, err
}

func (r *Reader) Spacing(name string) (float64, error) {
	info, err := r.Info(name)
	return info.Spacing, err
}

func (r *Reader) ListSongs() ([]string, error) {
	names := []string{}
	if r.db == nil {
		return names, nil
	}
	rows, err := r.db.Query("SELECT name FROM songs ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, "listing songs")
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "listing songs")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ReadFrameRange returns the note sets of frames [start, end).
func (r *Reader) ReadFrameRange(name string, start, end int) ([]model.Notes, error) {
	frames, err := r.ReadFrames(name, start, end)
	if err != nil {
		return nil, err
	}
	res := make([]model.Notes, len(frames))
	for i, f := range frames {
		res[i] = f.Notes
	}
	return res, nil
}

func (r *Reader) ReadFrames(name string, start, end int) ([]model.Frame, error) {
	length, err := r.SongLength(name)
	if err != nil {
		return nil, err
	}
	if start < 0 || end > length || start > end {
		return nil, &RangeError{Song: name, Start: start, End: end, Length: length}
	}

	rows, err := r.db.Query("SELECT tick, notes FROM frames WHERE song = ? AND idx >= ? AND idx < ? ORDER BY idx",
		name, start, end)
	if err != nil {
		return nil, errors.Wrapf(err, "reading frames of %v", name)
	}
	defer rows.Close()

	res := make([]model.Frame, 0, end-start)
	for rows.Next() {
		var f model.Frame
		var b []byte
		if err := rows.Scan(&f.Tick, &b); err != nil {
			return nil, errors.Wrapf(err, "reading frames of %v", name)
		}
		f.Notes = chord.Deserialize(b)
		res = append(res, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(res) != end-start {
		return nil, errors.Errorf("song %v is missing frames in [%d, %d)", name, start, end)
	}
	return res, nil
}

func (r *Reader) ReadSong(name string) (*model.Song, error) {
	info, err := r.Info(name)
	if err != nil {
		return nil, err
	}
	frames, err := r.ReadFrames(name, 0, info.Length)
	if err != nil {
		return nil, err
	}
	return &model.Song{Name: name, Frames: frames, Spacing: info.Spacing}, nil
}

func (r *Reader) Stats() (Stats, error) {
	var st Stats
	if r.db == nil {
		return st, nil
	}
	err := r.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(length), 0) FROM songs").Scan(&st.Songs, &st.Frames)
	if err != nil {
		return st, errors.Wrap(err, "counting songs")
	}
	err = r.db.QueryRow("SELECT COUNT(*) FROM frames WHERE COALESCE(length(notes), 0) = 0").Scan(&st.Rests)
	if err != nil {
		return st, errors.Wrap(err, "counting rests")
	}
	return st, nil
}
