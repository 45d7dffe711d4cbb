package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Dosada05/album-bracket/brackets"
	"github.com/Dosada05/album-bracket/db"
	"github.com/Dosada05/album-bracket/models"
	"github.com/Dosada05/album-bracket/repositories"
	"github.com/Dosada05/album-bracket/selection"
	"github.com/Dosada05/album-bracket/services"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

// Все турниры симулятора принадлежат одному пользователю
var simOwner = uuid.NewSHA1(uuid.NameSpaceOID, []byte("bracketsim"))

type simulation struct {
	tournaments services.TournamentService
	brackets    services.BracketService
	albums      services.AlbumService
	rng         *rand.Rand
	out         io.Writer
	close       func() error
}

func openSimulation(ctx context.Context, dsn string, seed uint64, out io.Writer) (*simulation, error) {
	conn, err := db.Connect(db.DriverSQLite, dsn, 5*time.Second)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx, conn, db.DriverSQLite); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tournamentRepo := repositories.NewTournamentRepository(conn, db.DriverSQLite)
	roundRepo := repositories.NewRoundRepository(conn)
	albumRepo := repositories.NewAlbumRepository(conn)

	opts := services.SelectionOptions{
		Random:  selection.NewRandomStrategy(rand.NewPCG(seed, 1)),
		Pairing: brackets.NewRandomPairing(rand.NewPCG(seed, 2)),
	}
	return &simulation{
		tournaments: services.NewTournamentService(conn, tournamentRepo, roundRepo, albumRepo, opts, nil, logger),
		brackets:    services.NewBracketService(conn, tournamentRepo, roundRepo, nil, nil, logger),
		albums:      services.NewAlbumService(albumRepo),
		rng:         rand.New(rand.NewPCG(seed, 3)),
		out:         out,
		close:       conn.Close,
	}, nil
}

// run imports names as albums, builds a bracket over count of them and,
// with play set, decides every match at random.
func (s *simulation) run(ctx context.Context, names []string, count int, play bool) (*brackets.Node, error) {
	albums := make([]*models.Album, 0, len(names))
	for _, name := range names {
		albums = append(albums, &models.Album{
			SpotifyID:  "sim:" + strings.ToLower(name),
			Name:       name,
			ArtistName: "bracketsim",
		})
	}
	if _, err := s.albums.ImportAlbums(ctx, simOwner, albums); err != nil {
		return nil, fmt.Errorf("failed to import albums: %w", err)
	}

	if count <= 0 {
		count = len(names)
	}
	tournament, err := s.tournaments.CreateTournament(ctx, simOwner, services.CreateTournamentInput{
		Name:       "Simulation " + time.Now().UTC().Format("15:04:05"),
		AlbumCount: count,
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(s.out, "tournament %s\n", tournament.ID)

	tree, err := s.brackets.GetBracket(ctx, simOwner, tournament.ID)
	if err != nil {
		return nil, err
	}
	if !play {
		return tree, nil
	}

	for !tree.IsDecided() {
		match := nextPlayableMatch(tree)
		if match == nil {
			return nil, fmt.Errorf("bracket %s has no playable match", tournament.ID)
		}
		winner := match.PreviousRounds[s.rng.IntN(len(match.PreviousRounds))]
		if _, err := s.brackets.SetRoundWinner(ctx, simOwner, match.ID, &winner.ID); err != nil {
			return nil, err
		}
		fmt.Fprintf(s.out, "round %d: %s\n", match.ID, albumLabel(winner.Album))

		if tree, err = s.brackets.GetBracket(ctx, simOwner, tournament.ID); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// nextPlayableMatch returns the deepest undecided match whose previous rounds
// are both decided.
func nextPlayableMatch(tree *brackets.Node) *brackets.Node {
	var (
		found      *brackets.Node
		foundDepth = -1
	)
	tree.Walk(func(node *brackets.Node, depth int) bool {
		if node.IsLeaf() {
			return false
		}
		if !node.IsDecided() && depth > foundDepth &&
			node.PreviousRounds[0].IsDecided() && node.PreviousRounds[1].IsDecided() {
			found, foundDepth = node, depth
		}
		return true
	})
	return found
}

func printTree(out io.Writer, tree *brackets.Node) {
	tree.Walk(func(node *brackets.Node, depth int) bool {
		label := "?"
		if node.IsDecided() {
			label = albumLabel(node.Album)
		}
		fmt.Fprintf(out, "%s#%d %s\n", strings.Repeat("  ", depth), node.ID, label)
		return true
	})
}

func albumLabel(album *models.Album) string {
	if album == nil {
		return "?"
	}
	return album.Name
}

func newSimulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "build a bracket over the given album names",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "albums", Aliases: []string{"a"}, Usage: "album names", Required: true},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "albums to draw (default: all)"},
			&cli.StringFlag{Name: "db", Value: "file:bracketsim.db?_foreign_keys=on", Usage: "SQLite DSN"},
			&cli.BoolFlag{Name: "play", Usage: "decide every match at random"},
			&cli.Uint64Flag{Name: "seed", Value: uint64(time.Now().UnixNano()), Usage: "random seed"},
		},
		Action: func(c *cli.Context) error {
			sim, err := openSimulation(c.Context, c.String("db"), c.Uint64("seed"), c.App.Writer)
			if err != nil {
				return err
			}
			defer sim.close()

			tree, err := sim.run(c.Context, c.StringSlice("albums"), c.Int("count"), c.Bool("play"))
			if err != nil {
				return err
			}
			printTree(c.App.Writer, tree)
			return nil
		},
	}
}

func newShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "print a stored bracket",
		ArgsUsage: "<tournament id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Value: "file:bracketsim.db?_foreign_keys=on", Usage: "SQLite DSN"},
		},
		Action: func(c *cli.Context) error {
			id, err := uuid.Parse(c.Args().First())
			if err != nil {
				return cli.Exit(fmt.Sprintf("invalid tournament id %q", c.Args().First()), 2)
			}
			sim, err := openSimulation(c.Context, c.String("db"), 0, c.App.Writer)
			if err != nil {
				return err
			}
			defer sim.close()

			tree, err := sim.brackets.GetBracket(c.Context, simOwner, id)
			if err != nil {
				return err
			}
			printTree(c.App.Writer, tree)
			return nil
		},
	}
}
