package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gosuri/uilive"
	"github.com/spf13/cobra"
	"github.com/zeu5/taxi-rl/session"
	"github.com/zeu5/taxi-rl/training"
	"github.com/zeu5/taxi-rl/types"
)

func TrainCommand() *cobra.Command {
	var (
		gridSize  int
		obstacles []string
		episodes  int
		maxSteps  int
		gamma     float64
		alpha     float64
		epsilon   float64
		seed      uint64
		saveDir   string
		saveName  string
		traces    bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train an agent without a client and plot the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := loadConfig()
			if err != nil {
				return err
			}
			pairs, err := parseObstacles(obstacles)
			if err != nil {
				return err
			}
			params := c.Agent.Params
			if cmd.Flags().Changed("gamma") {
				params.Gamma = gamma
			}
			if cmd.Flags().Changed("alpha") {
				params.Alpha = alpha
			}
			if cmd.Flags().Changed("epsilon") {
				params.Epsilon = epsilon
			}
			if !cmd.Flags().Changed("seed") {
				seed = c.Agent.Seed
			}
			if !cmd.Flags().Changed("max-steps") && c.Training.MaxEpisodeSteps != 0 {
				maxSteps = c.Training.MaxEpisodeSteps
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			st, err := openStore(ctx, c, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := os.MkdirAll(saveDir, 0o755); err != nil {
				return err
			}
			tracePath := ""
			if traces {
				tracePath = filepath.Join(saveDir, "traces.jsonl")
				os.Remove(tracePath)
			}

			printer := uilive.New()
			p := newProgress(printer, gridSize, episodes, tracePath)
			noDelay := map[types.Speed]time.Duration{types.Speed1x: 0, types.Speed10x: 0, types.Speed100x: 0}
			controller, err := session.NewController(ctx, "train", p,
				session.WithAgent(params, seed),
				session.WithStore(st),
				session.WithLogger(logger),
				session.WithTrainingOptions(training.WithDelays(noDelay)),
			)
			if err != nil {
				return err
			}
			defer controller.Close()

			handle := func(name string, payload interface{}) error {
				bs, err := json.Marshal(payload)
				if err != nil {
					return err
				}
				return controller.Handle(ctx, types.Command{Name: name, Data: bs})
			}

			if err := handle(types.CommandInit, types.InitPayload{GridSize: gridSize, Obstacles: pairs}); err != nil {
				return err
			}
			printer.Start()
			start := time.Now()
			err = handle(types.CommandStartTraining, types.StartTrainingPayload{
				Episodes: episodes,
				Speed:    int(types.Speed100x),
				MaxSteps: maxSteps,
			})
			if err != nil {
				printer.Stop()
				return err
			}
			<-p.Done()
			printer.Stop()
			if err := p.Err(); err != nil {
				return err
			}

			fmt.Printf("Trained %d episodes in %s, %d delivered\n", len(p.records), time.Since(start).Round(time.Millisecond), p.successes())
			if p.stopped {
				fmt.Println("Training interrupted")
			}

			if len(p.records) > 0 {
				if err := training.PlotLearningCurve(filepath.Join(saveDir, "learning_curve.png"), p.records); err != nil {
					return err
				}
				if err := p.visits.SaveHeatMap(filepath.Join(saveDir, "visits.png")); err != nil {
					return err
				}
			}
			if saveName != "" {
				if err := handle(types.CommandSaveAgent, types.AgentNamePayload{Name: saveName}); err != nil {
					return err
				}
				fmt.Printf("Saved table as %s\n", saveName)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&gridSize, "grid-size", "g", 4, "Grid size, 3 or 4")
	cmd.Flags().StringArrayVarP(&obstacles, "obstacle", "o", nil, "Obstacle cell as x,y, repeatable")
	cmd.Flags().IntVarP(&episodes, "episodes", "e", 500, "Number of episodes to train")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 200, "Turn limit of an episode, 0 disables it")
	cmd.Flags().Float64Var(&gamma, "gamma", 0.9, "Discount factor")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.1, "Learning rate")
	cmd.Flags().Float64Var(&epsilon, "epsilon", 0.1, "Exploration rate")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed, 0 picks one from the clock")
	cmd.Flags().StringVarP(&saveDir, "save", "s", "results", "Save plots and traces in the specified folder")
	cmd.Flags().StringVarP(&saveName, "name", "n", "", "Store the trained table under this name")
	cmd.Flags().BoolVar(&traces, "traces", false, "Record every episode as a JSON line")
	return cmd
}

// parseObstacles reads "x,y" cells
func parseObstacles(specs []string) ([][2]int, error) {
	pairs := make([][2]int, 0, len(specs))
	for _, s := range specs {
		parts := strings.Split(s, ",")
		if len(parts) != 2 {
			return nil, types.NewConfigError("obstacle %q must be x,y", s)
		}
		x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
		y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errX != nil || errY != nil {
			return nil, types.NewConfigError("obstacle %q must be two integers", s)
		}
		pairs = append(pairs, [2]int{x, y})
	}
	return pairs, nil
}
