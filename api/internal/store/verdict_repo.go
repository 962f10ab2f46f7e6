package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"safechat/api/internal/toxicity"
)

//go:embed schema.sql
var schema string

var ErrNotFound = sql.ErrNoRows

// VerdictRepo caches detection verdicts keyed by (text_hash, engine, model).
// It satisfies toxicity.Cache.
type VerdictRepo struct {
	DB *sql.DB
	// MaxAge makes older rows count as misses. Zero disables the check.
	MaxAge time.Duration
}

func NewVerdictRepo(db *sql.DB, maxAge time.Duration) *VerdictRepo {
	return &VerdictRepo{DB: db, MaxAge: maxAge}
}

func (r *VerdictRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Find returns ErrNotFound when the row is missing, stale or undecodable.
func (r *VerdictRepo) Find(ctx context.Context, key toxicity.CacheKey) (toxicity.Result, error) {
	const q = `select result_json, created_at
	           from toxicity_verdicts
	           where text_hash=$1 and engine=$2 and model=$3`
	var (
		js []byte
		ts time.Time
	)
	if err := r.DB.QueryRowContext(ctx, q, key.TextHash, key.Engine, key.Model).Scan(&js, &ts); err != nil {
		return toxicity.Result{}, err
	}
	if r.MaxAge > 0 && time.Since(ts) > r.MaxAge {
		return toxicity.Result{}, ErrNotFound
	}
	var res toxicity.Result
	if err := json.Unmarshal(js, &res); err != nil {
		return toxicity.Result{}, ErrNotFound
	}
	if res.Categories == nil {
		res.Categories = []string{}
	}
	return res, nil
}

func (r *VerdictRepo) Upsert(ctx context.Context, key toxicity.CacheKey, res toxicity.Result) error {
	js, err := json.Marshal(res)
	if err != nil {
		return err
	}
	const q = `
insert into toxicity_verdicts(text_hash, engine, model, result_json)
values ($1,$2,$3,$4)
on conflict (text_hash, engine, model)
do update set result_json=excluded.result_json, created_at=now()`
	_, err = r.DB.ExecContext(ctx, q, key.TextHash, key.Engine, key.Model, js)
	return err
}

// PurgeOlderThan deletes verdicts older than age and reports how many went.
func (r *VerdictRepo) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	const q = `delete from toxicity_verdicts where created_at < now() - make_interval(secs => $1)`
	res, err := r.DB.ExecContext(ctx, q, age.Seconds())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
