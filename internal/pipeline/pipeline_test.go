package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loteria-digital/walletledger/internal/domain/ledger"
	"github.com/loteria-digital/walletledger/pkg/config"
)

const exportDay1 = `Reporte de Movimientos
Generado;16/07/2025

Nro. Transacción;Fecha;Tipo Mov.;Documento;Movimiento;Importe
1001;15/07/2025 10:00:00;Jugada;100;Jugada - Tombola;1.000,00
1002;15/07/2025 11:00:00;Carga Saldo desde MODO;100;Carga MODO;2.000,00
`

// Re-export covering the same day: 1001 carries a corrected amount.
const exportDay2 = `Nro. Transacción;Fecha;Tipo Mov.;Documento;Movimiento;Importe
1001;15/07/2025 10:00:00;Jugada;100;Jugada - Tombola;1.200,00
1003;16/07/2025 09:30:00;Jugada;200;Jugada - Quini 6;500,00
`

// One bet on each game family, all tied on count and amount.
const exportGames = `Nro. Transacción;Fecha;Tipo Mov.;Documento;Movimiento;Importe
2001;20/07/2025 10:00:00;Jugada;100;Jugada - Tombola;100,00
2002;20/07/2025 11:00:00;Jugada;200;Jugada - Quini 6;100,00
2003;20/07/2025 12:00:00;Jugada;300;Jugada - Loto Plus;100,00
2004;20/07/2025 13:00:00;Jugada;400;Jugada - Tombo Express;100,00
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Paths: config.Paths{
			DataDir:      filepath.Join(root, "data"),
			ProcessedDir: filepath.Join(root, "processed"),
			DatasetDir:   filepath.Join(root, "datasets"),
			OutputDir:    filepath.Join(root, "csv_dashboard"),
		},
		Milestones: config.Milestones{
			GamesLaunch: "2025-04-14",
			ModoFull:    "2025-07-07",
		},
		LogLevel: "info",
	}
	require.NoError(t, os.MkdirAll(cfg.Paths.DataDir, 0o755))
	return cfg
}

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := New(cfg, logger)
	require.NoError(t, err)
	return p
}

func dropFile(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.DataDir, name), []byte(content), 0o644))
}

func loadSnapshot(t *testing.T, cfg *config.Config) []ledger.Transaction {
	t.Helper()
	txs, err := ledger.NewStore(filepath.Join(cfg.Paths.DatasetDir, "movimientos.parquet")).Load()
	require.NoError(t, err)
	return txs
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)
	dropFile(t, cfg, "2025-07-15.csv", exportDay1)

	require.NoError(t, p.Run(context.Background()))

	txs := loadSnapshot(t, cfg)
	require.Len(t, txs, 2)

	// The processed file was archived under its month.
	_, err := os.Stat(filepath.Join(cfg.Paths.ProcessedDir, "2025-07", "2025-07-15.csv"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.Paths.DataDir, "2025-07-15.csv"))
	require.True(t, os.IsNotExist(err))

	for _, name := range []string{"kpis.csv", "apuestas_diario.csv", "modo_diario.csv", "comparativa_modo.csv"} {
		_, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, name))
		require.NoError(t, err, name)
	}

	raw, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, "apuestas_diario.csv"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "2025-07-15,1000.00")
}

func TestRun_CorrectionReplacesAmount(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	dropFile(t, cfg, "2025-07-15.csv", exportDay1)
	require.NoError(t, p.Run(context.Background()))

	dropFile(t, cfg, "2025-07-16.csv", exportDay2)
	require.NoError(t, p.Run(context.Background()))

	txs := loadSnapshot(t, cfg)
	require.Len(t, txs, 3)
	byID := map[string]ledger.Transaction{}
	for _, tx := range txs {
		byID[tx.ID] = tx
	}
	require.Equal(t, int64(120000), byID["1001"].AmountCents)

	raw, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, "apuestas_diario.csv"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "2025-07-15,1200.00")
	require.Contains(t, string(raw), "2025-07-16,500.00")
}

func readOutputs(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := map[string]string{}
	for _, e := range entries {
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		out[e.Name()] = string(raw)
	}
	return out
}

func TestRun_NoNewFilesKeepsReporting(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	dropFile(t, cfg, "2025-07-15.csv", exportDay1)
	// One tied bet per game, so any run-to-run leaderboard drift shows
	// up in the rerun diff below.
	dropFile(t, cfg, "2025-07-20.csv", exportGames)
	require.NoError(t, p.Run(context.Background()))

	first := readOutputs(t, cfg.Paths.OutputDir)
	require.NotEmpty(t, first["kpis.csv"])

	// Reruns with nothing new rebuild every table byte for byte.
	require.NoError(t, os.RemoveAll(cfg.Paths.OutputDir))
	require.NoError(t, p.Run(context.Background()))
	require.Equal(t, first, readOutputs(t, cfg.Paths.OutputDir))

	require.NoError(t, p.Run(context.Background()))
	require.Equal(t, first, readOutputs(t, cfg.Paths.OutputDir))
}

func TestRun_EmptyStartFails(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	err := p.Run(context.Background())
	require.True(t, errors.Is(err, ledger.ErrLedgerMissing))
}

func TestRun_HeaderlessFileIsSkipped(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	dropFile(t, cfg, "2025-07-15.csv", exportDay1)
	dropFile(t, cfg, "banner.csv", "solo texto\nsin tabla\n")
	require.NoError(t, p.Run(context.Background()))

	// The skipped file stays in place for a future retry and gets no
	// manifest entry.
	_, err := os.Stat(filepath.Join(cfg.Paths.DataDir, "banner.csv"))
	require.NoError(t, err)
	manifest := ledger.LoadManifest(filepath.Join(cfg.Paths.DatasetDir, "manifest.csv"))
	require.Equal(t, 1, manifest.Len())
}

func TestRun_MalformedFileDoesNotAbortBatch(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	broken := "Nro. Transacción;Fecha;Tipo Mov.;Documento;Movimiento;Importe\n" +
		"9001;15/07/2025 10:00:00;Jugada;100;Jugada - Tombola;no-es-numero\n"
	dropFile(t, cfg, "2025-07-14.csv", broken)
	dropFile(t, cfg, "2025-07-15.csv", exportDay1)
	require.NoError(t, p.Run(context.Background()))

	// Only the healthy file contributed; the broken one stays in place
	// without a manifest entry so a fixed re-export reprocesses it.
	txs := loadSnapshot(t, cfg)
	require.Len(t, txs, 2)
	_, err := os.Stat(filepath.Join(cfg.Paths.DataDir, "2025-07-14.csv"))
	require.NoError(t, err)
	manifest := ledger.LoadManifest(filepath.Join(cfg.Paths.DatasetDir, "manifest.csv"))
	require.Equal(t, 1, manifest.Len())
}

func TestRun_WithRoster(t *testing.T) {
	cfg := testConfig(t)
	rosterPath := filepath.Join(t.TempDir(), "usuarios.csv")
	require.NoError(t, os.WriteFile(rosterPath, []byte(
		"DNI,Fecha Alta,Usuario,Correo\n100,15/06/2025,juanp,juan@example.com\n"), 0o644))
	cfg.Paths.RosterFile = rosterPath

	p := newTestPipeline(t, cfg)
	dropFile(t, cfg, "2025-07-15.csv", exportDay1)
	require.NoError(t, p.Run(context.Background()))

	raw, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, "apuestas_con_usuarios.csv"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "juanp")
}
