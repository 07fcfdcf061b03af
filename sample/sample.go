// Package sample renders generated events as a standard MIDI file.
package sample

import (
	"math/big"

	"github.com/jsphweid/tunator/constants"
	"github.com/jsphweid/tunator/model"
	"github.com/jsphweid/tunator/pitch"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const channel = 0

func ticks(offset *big.Rat) uint32 {
	t := new(big.Rat).Mul(offset, big.NewRat(constants.OutputResolution, 1))
	return uint32(new(big.Int).Quo(t.Num(), t.Denom()).Uint64())
}

// Create writes events onto a single piano track. Each event sounds until the
// next one starts; the last lasts a quarter note. Rests only advance time.
func Create(events []model.Event, index *pitch.Index) (*smf.SMF, error) {
	logger := log.WithFields(log.Fields{
		"function": "sample.Create",
	})

	res := smf.New()
	res.TimeFormat = smf.MetricTicks(constants.OutputResolution)

	var track smf.Track
	track.Add(0, smf.MetaTempo(120))
	track.Add(0, midi.ProgramChange(channel, 0))

	var cursor uint32
	for i, ev := range events {
		start := ticks(ev.Offset)
		end := start + constants.OutputResolution
		if i+1 < len(events) {
			end = ticks(events[i+1].Offset)
		}
		if start < cursor || end < start {
			return nil, errors.Errorf("event %d at %v is out of order", i, ev.Offset.RatString())
		}
		if ev.Kind == model.KindRest {
			continue
		}

		var keys []uint8
		for _, name := range ev.Pitches {
			slot, err := index.Resolve(name)
			if err != nil {
				return nil, err
			}
			key, err := index.MIDIOf(slot)
			if err != nil {
				logger.Debugf("dropping %v: %v", name, err)
				continue
			}
			keys = append(keys, key)
		}
		if len(keys) == 0 {
			continue
		}

		delta := start - cursor
		for _, key := range keys {
			track.Add(delta, midi.NoteOn(channel, key, constants.OutputVelocity))
			delta = 0
		}
		delta = end - start
		for _, key := range keys {
			track.Add(delta, midi.NoteOff(channel, key))
			delta = 0
		}
		cursor = end
	}
	track.Close(0)

	if err := res.Add(track); err != nil {
		return nil, errors.Wrap(err, "adding track")
	}
	return res, nil
}
