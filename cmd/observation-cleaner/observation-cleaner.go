package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	appName string = "observation-cleaner"
)

func main() {
	appVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")
	defer cleanup()

	log.Debug("begin cleaning observations")

	p, err := connect(ctx, LoadConfiguration(ctx))
	if err != nil {
		log.Error("failed to connect to database", "err", err.Error())
		os.Exit(1)
	}
	defer p.Close()

	procedures, err := getProcedures(ctx, p)
	if err != nil {
		log.Error("failed to get procedures", "err", err.Error())
		os.Exit(1)
	}

	log.Debug("number of total procedures", "count", len(procedures))

	var totalCount int64 = 0

	for _, procedure := range procedures {
		l := log.With(slog.String("procedure", procedure))

		l.Debug("find duplicates for procedure", slog.Time("start_time", time.Now()))

		dups, err := findDuplicates(ctx, p, procedure)
		if err != nil {
			l.Error("failed to get duplicates", "err", err.Error())
			os.Exit(1)
		}

		if len(dups) == 0 {
			l.Debug("found no duplicates", slog.Time("end_time", time.Now()))
			continue
		}

		totalCount += int64(len(dups))

		err = deleteDuplicates(ctx, p, dups)
		if err != nil {
			l.Error("failed to delete duplicates", "err", err.Error())
			os.Exit(1)
		}

		l.Debug("done cleaning duplicates", slog.Int("count", len(dups)), slog.Time("end_time", time.Now()))
	}

	log.Debug("vacuum")

	err = vacuum(ctx, p)
	if err != nil {
		log.Error("failed to vacuum table", "err", err.Error())
		os.Exit(1)
	}

	log.Info("done cleaning", slog.Int64("total", totalCount))
}

type Config struct {
	host     string
	user     string
	password string
	port     string
	dbname   string
	sslmode  string
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		host:     env.GetVariableOrDefault(ctx, "POSTGRES_HOST", ""),
		user:     env.GetVariableOrDefault(ctx, "POSTGRES_USER", ""),
		password: env.GetVariableOrDefault(ctx, "POSTGRES_PASSWORD", ""),
		port:     env.GetVariableOrDefault(ctx, "POSTGRES_PORT", "5432"),
		dbname:   env.GetVariableOrDefault(ctx, "POSTGRES_DBNAME", "diwise"),
		sslmode:  env.GetVariableOrDefault(ctx, "POSTGRES_SSLMODE", "disable"),
	}
}

func (c Config) ConnStr() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.user, c.password, c.host, c.port, c.dbname, c.sslmode)
}

func connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	conn, err := pgxpool.New(ctx, cfg.ConnStr())
	if err != nil {
		return nil, err
	}

	err = conn.Ping(ctx)
	if err != nil {
		return nil, err
	}

	return conn, err
}

func getProcedures(ctx context.Context, p *pgxpool.Pool) ([]string, error) {
	sql := `SELECT distinct procedure FROM observations ORDER BY procedure;`

	rows, err := p.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	procedures := make([]string, 0)

	for rows.Next() {
		var procedure string
		err := rows.Scan(&procedure)
		if err != nil {
			return nil, err
		}
		procedures = append(procedures, procedure)
	}

	return procedures, nil
}

// findDuplicates returns the ids of all but the most recently stored row
// for each (procedure, observable property, feature, phenomenon start)
// combination
func findDuplicates(ctx context.Context, p *pgxpool.Pool, procedure string) ([]string, error) {
	sql := `
		select id from (
			SELECT id, ROW_NUMBER() OVER(
				PARTITION BY procedure, observable_property, feature_of_interest, phenomenon_start
				ORDER BY result_time desc, id desc
			) AS Row
			FROM observations
			WHERE procedure=$1
		) dups
		where dups.Row > 1;`

	rows, err := p.Query(ctx, sql, procedure)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)

	for rows.Next() {
		var id string
		err := rows.Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func deleteDuplicates(ctx context.Context, p *pgxpool.Pool, ids []string) error {
	_, err := p.Exec(ctx, `DELETE FROM observations WHERE id = ANY($1)`, ids)
	return err
}

func vacuum(ctx context.Context, p *pgxpool.Pool) error {
	_, err := p.Exec(ctx, `VACUUM ANALYZE observations`)
	return err
}
