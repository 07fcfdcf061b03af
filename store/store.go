// Package store persists quantized songs in a single sqlite file. Songs are
// written once and never mutated.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jsphweid/tunator/chord"
	"github.com/jsphweid/tunator/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	_ "modernc.org/sqlite"
)

var schema = []string{`
	CREATE TABLE IF NOT EXISTS songs(
		name TEXT PRIMARY KEY,
		key TEXT NOT NULL,
		spacing REAL NOT NULL,
		length INTEGER NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS frames(
		song TEXT NOT NULL REFERENCES songs(name),
		idx INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		notes BLOB,
		PRIMARY KEY(song, idx)
	)`,
}

// Key is the hierarchical name a song's notes live under.
func Key(name string) string {
	return fmt.Sprintf("songs/%v/notes", name)
}

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) created() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "checking store %v", s.path)
}

func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening store %v", s.path)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "creating schema in %v", s.path)
		}
	}
	return db, nil
}

// View runs fn against one open read session. A store that has not been
// created yet reads as empty.
func (s *Store) View(fn func(r *Reader) error) error {
	ok, err := s.created()
	if err != nil {
		return err
	}
	if !ok {
		return fn(&Reader{})
	}

	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(&Reader{db: db})
}

// Exists splits names into those already stored and those missing.
func (s *Store) Exists(names []string) (found, missing []string, err error) {
	names = slices.Clone(names)
	slices.Sort(names)
	names = slices.Compact(names)

	err = s.View(func(r *Reader) error {
		for _, name := range names {
			ok, err := r.Has(name)
			if err != nil {
				return err
			}
			if ok {
				found = append(found, name)
			} else {
				missing = append(missing, name)
			}
		}
		return nil
	})
	return found, missing, err
}

// Write stores a song in one transaction, so readers see all of it or none.
func (s *Store) Write(song *model.Song) error {
	if err := validate(song); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrapf(err, "creating directory for %v", s.path)
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "starting write")
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRow("SELECT COUNT(*) FROM songs WHERE name = ?", song.Name).Scan(&n); err != nil {
		return errors.Wrapf(err, "checking for %v", song.Name)
	}
	if n > 0 {
		return &DuplicateSongError{Name: song.Name}
	}

	if _, err := tx.Exec("INSERT INTO songs(name, key, spacing, length) VALUES(?,?,?,?)",
		song.Name, Key(song.Name), song.Spacing, len(song.Frames)); err != nil {
		return errors.Wrapf(err, "inserting %v", song.Name)
	}

	stmt, err := tx.Prepare("INSERT INTO frames(song, idx, tick, notes) VALUES(?,?,?,?)")
	if err != nil {
		return errors.Wrap(err, "preparing frame insert")
	}
	defer stmt.Close()
	for i, f := range song.Frames {
		if _, err := stmt.Exec(song.Name, i, f.Tick, chord.Serialize(f.Notes)); err != nil {
			return errors.Wrapf(err, "inserting frame %d of %v", i, song.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "committing %v", song.Name)
	}
	log.WithFields(log.Fields{
		"function": "store.Write",
		"song":     song.Name,
	}).Debugf("wrote %d frames", len(song.Frames))
	return nil
}

func validate(song *model.Song) error {
	if song.Name == "" {
		return errors.New("song has no name")
	}
	if song.Spacing <= 0 {
		return errors.Errorf("song %v has non-positive spacing %v", song.Name, song.Spacing)
	}
	for i := 1; i < len(song.Frames); i++ {
		if song.Frames[i].Tick <= song.Frames[i-1].Tick {
			return errors.Errorf("song %v: tick %d at frame %d does not increase", song.Name, song.Frames[i].Tick, i)
		}
	}
	return nil
}

func (s *Store) ReadFrameRange(name string, start, end int) (res []model.Notes, err error) {
	err = s.View(func(r *Reader) error {
		res, err = r.ReadFrameRange(name, start, end)
		return err
	})
	return res, err
}

func (s *Store) SongLength(name string) (n int, err error) {
	err = s.View(func(r *Reader) error {
		n, err = r.SongLength(name)
		return err
	})
	return n, err
}

func (s *Store) Spacing(name string) (spacing float64, err error) {
	err = s.View(func(r *Reader) error {
		spacing, err = r.Spacing(name)
		return err
	})
	return spacing, err
}

func (s *Store) ListSongs() (names []string, err error) {
	err = s.View(func(r *Reader) error {
		names, err = r.ListSongs()
		return err
	})
	return names, err
}

type Stats struct {
	Songs  int `json:"songs"`
	Frames int `json:"frames"`
	Rests  int `json:"rests"`
}

func (s *Store) Stats() (st Stats, err error) {
	err = s.View(func(r *Reader) error {
		st, err = r.Stats()
		return err
	})
	return st, err
}
