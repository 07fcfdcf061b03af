// Package corpus fills the song store from a directory of MIDI files.
package corpus

import (
	"io"
	"time"

	"github.com/jsphweid/tunator/file"
	"github.com/jsphweid/tunator/midi"
	"github.com/jsphweid/tunator/model"
	"github.com/jsphweid/tunator/quantize"
	"github.com/jsphweid/tunator/store"
	"github.com/jsphweid/tunator/util"
	log "github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

type Report struct {
	// Stored lists songs that were already in the store.
	Stored  []string
	Written []string
	Skipped map[string]error
}

type Updater struct {
	store     *store.Store
	quantizer *quantize.Quantizer
	// Progress receives the progress bar. Nil hides it.
	Progress io.Writer
}

func NewUpdater(s *store.Store, q *quantize.Quantizer) *Updater {
	return &Updater{store: s, quantizer: q}
}

// Process ingests and quantizes one file.
func (u *Updater) Process(name, path string) (*model.Song, error) {
	in, err := midi.Ingest(path)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"function": "corpus.Process",
		"song":     name,
	}).Debugf("key %v, flattened %v, %d events", in.Key.Name(), in.Flattened(), len(in.Events))
	frames, spacing, err := u.quantizer.Quantize(in.Events)
	if err != nil {
		return nil, err
	}
	return &model.Song{Name: name, Frames: frames, Spacing: spacing}, nil
}

// Update writes every song in paths that the store does not hold yet. A song
// that fails to ingest is logged and skipped.
func (u *Updater) Update(paths []string) (*Report, error) {
	logger := log.WithFields(log.Fields{
		"function": "corpus.Update",
	})

	songs := file.CreateSongFileMap(paths)
	found, missing, err := u.store.Exists(util.SortedKeys(songs))
	if err != nil {
		return nil, err
	}
	logger.Infof("%d songs already stored, %d to ingest", len(found), len(missing))

	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(u.Progress))
	bar := p.AddBar(int64(len(missing)),
		mpb.PrependDecorators(
			decor.Name("Ingesting: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	report := &Report{Stored: found, Skipped: make(map[string]error)}
	for _, name := range missing {
		start := time.Now()
		song, err := u.Process(name, songs[name])
		if err == nil {
			err = u.store.Write(song)
		}
		bar.EwmaIncrement(time.Since(start))

		if err != nil {
			logger.Warnf("skipping %v: %v", name, err)
			report.Skipped[name] = err
			continue
		}
		report.Written = append(report.Written, name)
	}
	p.Wait()

	logger.Infof("wrote %d songs, skipped %d", len(report.Written), len(report.Skipped))
	return report, nil
}
