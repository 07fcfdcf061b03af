package cmd

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/jsphweid/tunator/model"
	"github.com/jsphweid/tunator/pitch"
	"github.com/jsphweid/tunator/store"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var addr string

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the song store read-only over HTTP",
	Long:  `Serves the song store read-only over HTTP.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := pitchIndex()
		if err != nil {
			return err
		}
		log.Infof("serving %v on %v", cfg.StorePath, addr)
		return http.ListenAndServe(addr, newRouter(openStore(), index))
	},
}

type frameResponse struct {
	Tick  uint32   `json:"tick"`
	Notes []string `json:"notes"`
}

type songServer struct {
	store *store.Store
	index *pitch.Index
}

func newRouter(st *store.Store, index *pitch.Index) http.Handler {
	s := &songServer{store: st, index: index}
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/songs", s.handleSongs).Methods("GET")
	router.HandleFunc("/songs/{name}", s.handleSong).Methods("GET")
	router.HandleFunc("/songs/{name}/frames", s.handleFrames).Methods("GET")
	return cors.Default().Handler(router)
}

func (s *songServer) handleSongs(w http.ResponseWriter, r *http.Request) {
	res := make([]model.SongInfo, 0)
	err := s.store.View(func(rd *store.Reader) error {
		names, err := rd.ListSongs()
		if err != nil {
			return err
		}
		for _, name := range names {
			info, err := rd.Info(name)
			if err != nil {
				return err
			}
			res = append(res, info)
		}
		return nil
	})
	respond(w, res, err)
}

func (s *songServer) handleSong(w http.ResponseWriter, r *http.Request) {
	var info model.SongInfo
	err := s.store.View(func(rd *store.Reader) error {
		var err error
		info, err = rd.Info(mux.Vars(r)["name"])
		return err
	})
	respond(w, info, err)
}

func (s *songServer) handleFrames(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	res := make([]frameResponse, 0)
	err := s.store.View(func(rd *store.Reader) error {
		length, err := rd.SongLength(name)
		if err != nil {
			return err
		}
		start, err := queryInt(r, "start", 0)
		if err != nil {
			return err
		}
		end, err := queryInt(r, "end", length)
		if err != nil {
			return err
		}
		frames, err := rd.ReadFrames(name, start, end)
		if err != nil {
			return err
		}
		for _, f := range frames {
			names, err := pitchNames(s.index, f.Notes)
			if err != nil {
				return err
			}
			res = append(res, frameResponse{Tick: f.Tick, Notes: names})
		}
		return nil
	})
	respond(w, res, err)
}

type badRequest struct {
	error
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest{errors.Errorf("%v must be an integer", key)}
	}
	return n, nil
}

func respond(w http.ResponseWriter, body interface{}, err error) {
	if err != nil {
		var notFound *store.SongNotFoundError
		var rangeErr *store.RangeError
		var bad badRequest
		switch {
		case errors.As(err, &notFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.As(err, &rangeErr), errors.As(err, &bad):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.WithFields(log.Fields{
				"function": "cmd.respond",
			}).Error(err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
