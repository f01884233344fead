package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Black-And-White-Club/hydro/app"
	contestservice "github.com/Black-And-White-Club/hydro/app/modules/contest/application"
	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	contestexport "github.com/Black-And-White-Club/hydro/app/modules/contest/infrastructure/export"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/urfave/cli/v2"
)

var contestRefFlags = []cli.Flag{
	&cli.StringFlag{Name: "domain", Value: "system", Usage: "domain id"},
	&cli.StringFlag{Name: "tid", Required: true, Usage: "contest document id"},
	&cli.BoolFlag{Name: "homework", Usage: "address a homework instead of a contest"},
}

func docTypeOf(c *cli.Context) documentdomain.DocType {
	if c.Bool("homework") {
		return documentdomain.TypeHomework
	}
	return documentdomain.TypeContest
}

func contestKey(c *cli.Context) documentdomain.DocKey {
	return documentdomain.DocKey{
		DomainID: c.String("domain"),
		DocType:  docTypeOf(c),
		DocID:    documentdomain.DocID(c.String("tid")),
	}
}

func contestCommand() *cli.Command {
	return &cli.Command{
		Name:  "contest",
		Usage: "contest administration",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create a contest or homework",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "domain", Value: "system", Usage: "domain id"},
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "content"},
					&cli.StringFlag{Name: "rule", Value: "acm", Usage: "scoring rule"},
					&cli.StringFlag{Name: "begin", Required: true, Usage: `start time, e.g. "2026-03-01 09:00" or "tomorrow at 9am"`},
					&cli.StringFlag{Name: "end", Required: true, Usage: "end time, same formats as --begin"},
					&cli.StringFlag{Name: "penalty-since", Usage: "homework: time after which penalties apply"},
					&cli.StringFlag{Name: "tz", Usage: "IANA zone for times without an offset"},
					&cli.StringSliceFlag{Name: "pid", Required: true, Usage: "problem id or alias, repeatable"},
					&cli.Int64Flag{Name: "owner", Value: 1},
					&cli.BoolFlag{Name: "rated"},
					&cli.BoolFlag{Name: "homework"},
				},
				Action: createContest,
			},
			{
				Name:   "recalc",
				Usage:  "recompute every participant status of a contest",
				Flags:  contestRefFlags,
				Action: recalcContest,
			},
			{
				Name:  "scoreboard",
				Usage: "export a scoreboard",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "format", Value: string(contestexport.FormatXLSX), Usage: "xlsx, csv or png"},
					&cli.StringFlag{Name: "out", Required: true, Usage: "output file"},
				}, contestRefFlags...),
				Action: exportScoreboard,
			},
			{
				Name:   "jobs",
				Usage:  "list pending background recalculations of a contest",
				Flags:  contestRefFlags,
				Action: listJobs,
			},
		},
	}
}

func createContest(c *cli.Context) error {
	parser, err := newTimeParser(c.String("tz"))
	if err != nil {
		return err
	}
	now := time.Now()
	begin, err := parser.Parse(c.String("begin"), now)
	if err != nil {
		return fmt.Errorf("--begin: %w", err)
	}
	end, err := parser.Parse(c.String("end"), now)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}

	req := contestservice.AddRequest{
		DomainID: c.String("domain"),
		DocType:  docTypeOf(c),
		Owner:    c.Int64("owner"),
		Title:    c.String("title"),
		Content:  c.String("content"),
		Rule:     c.String("rule"),
		BeginAt:  begin,
		EndAt:    end,
		PIDs:     c.StringSlice("pid"),
		Rated:    c.Bool("rated"),
	}
	if v := c.String("penalty-since"); v != "" {
		since, err := parser.Parse(v, now)
		if err != nil {
			return fmt.Errorf("--penalty-since: %w", err)
		}
		req.PenaltySince = &since
	}

	return withApp(c, func(ctx context.Context, a *app.App) error {
		tid, err := a.Contest.ContestService.Add(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "created %s %s (%s to %s)\n", req.Rule, tid,
			begin.Format(time.RFC3339), end.Format(time.RFC3339))
		return nil
	})
}

func recalcContest(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		res, err := a.Contest.ContestService.RecalcStatus(ctx, contestKey(c))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "applied %d, skipped %d\n", res.Applied, res.Skipped)
		return nil
	})
}

func exportScoreboard(c *cli.Context) error {
	format, err := contestexport.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	return withApp(c, func(ctx context.Context, a *app.App) error {
		table, err := a.Contest.ContestService.GetScoreboard(ctx, contestKey(c), contestservice.ScoreboardOptions{
			IsExport: true,
			Override: true,
		})
		if err != nil {
			return err
		}
		data, err := contestexport.Export(table, format)
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.String("out"), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", c.String("out"), err)
		}
		fmt.Fprintf(c.App.Writer, "wrote %d participants to %s\n", participants(table), c.String("out"))
		return nil
	})
}

func participants(table *contestdomain.Table) int {
	if table == nil {
		return 0
	}
	return len(table.Rows)
}

func listJobs(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		if a.Contest.Queue == nil {
			return fmt.Errorf("background recalculation needs the postgres storage driver")
		}
		jobs, err := a.Contest.Queue.PendingJobs(ctx, contestdomain.RefOf(contestKey(c)))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	})
}
