// Command botsim plays a full game in-process with simulated players.
// Useful for eyeballing pacing and scoring without a frontend.
package main

import (
	"context"
	"flag"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/rs/zerolog"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/bot"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/game"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/questions"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

var botNames = []string{"Ada", "Grace", "Alan", "Linus", "Barbara", "Edsger", "Donald", "Radia"}

func main() {
	var (
		botCount = flag.Int("bots", 4, "number of simulated players")
		rounds   = flag.Int("rounds", 3, "rounds to play")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
		timeout  = flag.Duration("timeout", 15*time.Minute, "abort after this long")
	)
	flag.Parse()

	if *botCount < quiz.MinPlayersToStart {
		*botCount = quiz.MinPlayersToStart
	}
	if *botCount > quiz.MaxPlayersPerRoom {
		*botCount = quiz.MaxPlayersPerRoom
	}

	log := zerolog.Nop()

	src, err := questions.NewStatic()
	if err != nil {
		pterm.Fatal.Println("load questions:", err)
	}

	manager := game.NewManager(src, log, quiz.DefaultSettings())
	defer manager.Shutdown()

	info, err := manager.CreateRoom(&quiz.SettingsPatch{Rounds: rounds})
	if err != nil {
		pterm.Fatal.Println("create room:", err)
	}

	banner, _ := pterm.DefaultBigText.WithLetters(putils.LettersFromString("NERDQUIZ")).Srender()
	pterm.Println(banner)
	pterm.Info.Printfln("room %s, %d bots, seed %d", info.Code, *botCount, *seed)

	// Observer feed for the live view; never joins as a player.
	obSub, err := manager.Subscribe(info.Code, "botsim-observer")
	if err != nil {
		pterm.Fatal.Println("subscribe:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < *botCount; i++ {
		policy := bot.DefaultPolicy()
		policy.Accuracy = 0.45 + 0.07*float64(i)
		policy.AutoStart = i == 0
		b := bot.New(botNames[i%len(botNames)], policy, manager, src, log, *seed+int64(i))
		if err := b.Join(info.Code); err != nil {
			pterm.Fatal.Println("join:", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Run(ctx)
		}()
	}

	runView(ctx, obSub.C)

	cancel()
	wg.Wait()
}

func runView(ctx context.Context, events <-chan quiz.Event) {
	area, _ := pterm.DefaultArea.Start()
	final := consume(ctx, events, area)
	_ = area.Stop()
	if final != nil {
		renderFinal(*final)
	} else {
		pterm.Warning.Println("simulation ended without reaching the final phase")
	}
}

func consume(ctx context.Context, events <-chan quiz.Event, area *pterm.AreaPrinter) *quiz.FinalRankingsData {
	var (
		phase    quiz.Phase
		round    int
		players  []quiz.Player
		lastNote string
	)

	render := func() {
		rows := pterm.TableData{{"Player", "Score", "Streak"}}
		sorted := make([]quiz.Player, len(players))
		copy(sorted, players)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
		for _, p := range sorted {
			rows = append(rows, []string{p.Name, strconv.Itoa(p.Score), strconv.Itoa(p.Streak)})
		}
		table, _ := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
		area.Update(pterm.Sprintf("phase %s  round %d\n%s\n%s", phase, round, table, lastNote))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch data := ev.Data.(type) {
			case quiz.PhaseChangedData:
				phase, round, players = data.Phase, data.Round, data.Players
				render()
			case quiz.CategorySelectedData:
				lastNote = pterm.Sprintf("category %q via %s", data.Category.Name, data.Mode)
				render()
			case quiz.BuzzWonData:
				lastNote = pterm.Sprintf("buzz at %d%% revealed", data.RevealedPct)
				render()
			case quiz.PlayerEliminatedData:
				lastNote = pterm.Sprintf("eliminated at rank %d (%s)", data.Rank, data.Reason)
				render()
			case quiz.FinalRankingsData:
				return &data
			}
		}
	}
}

func renderFinal(data quiz.FinalRankingsData) {
	pterm.DefaultSection.Println("Final standings")
	rows := pterm.TableData{{"#", "Player", "Score"}}
	for _, r := range data.Rankings {
		rows = append(rows, []string{strconv.Itoa(r.Rank), r.Name, strconv.Itoa(r.Score)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	if len(data.Rankings) > 0 {
		top := data.Rankings[0]
		pterm.Success.Printfln("%s wins with %d points", top.Name, top.Score)
	}
}
