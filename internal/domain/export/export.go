// Package export writes the dashboard CSV files. Filenames and column
// headers are a contract with the spreadsheet template that reads
// them; changing either breaks the charts.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/loteria-digital/walletledger/internal/domain/aggregate"
)

const timestampLayout = "2006-01-02 15:04:05"

// Exporter writes the report tables into a single output directory.
type Exporter struct {
	dir string
}

func New(dir string) *Exporter { return &Exporter{dir: dir} }

// Write emits every dashboard table. Roster-dependent files are still
// written when no roster was loaded, as header-only files, so the
// dashboard never sees a missing input.
func (e *Exporter) Write(r *aggregate.Report) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	var written []string
	emit := func(name string, header []string, rows [][]string) error {
		if err := e.writeTable(name, header, rows); err != nil {
			return err
		}
		written = append(written, name)
		return nil
	}

	steps := []func(func(string, []string, [][]string) error) error{
		e.writeDeposits(r), e.writeWagers(r), e.writeSummary(r), e.writeRosterTables(r),
	}
	for _, step := range steps {
		if err := step(emit); err != nil {
			return written, err
		}
	}
	return written, nil
}

func (e *Exporter) writeTable(name string, header []string, rows [][]string) error {
	path := filepath.Join(e.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing %s: %w", name, err)
	}
	return f.Close()
}

func money(cents int64) string {
	return strconv.FormatFloat(float64(cents)/100, 'f', 2, 64)
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func count(n int) string { return strconv.Itoa(n) }

func id(n int64) string { return strconv.FormatInt(n, 10) }

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}

func (e *Exporter) writeDeposits(r *aggregate.Report) func(func(string, []string, [][]string) error) error {
	return func(emit func(string, []string, [][]string) error) error {
		rows := make([][]string, 0, len(r.ModoDaily))
		for _, row := range r.ModoDaily {
			rows = append(rows, []string{row.Day, count(row.Count), money(row.Cents), count(row.UniqueUsers)})
		}
		if err := emit("modo_diario.csv", []string{"Fecha_Dia", "Recargas_MODO", "Monto_MODO", "Usuarios_Unicos"}, rows); err != nil {
			return err
		}

		header := []string{"Fecha_Dia"}
		for _, c := range r.AmountPivot.Channels {
			header = append(header, string(c))
		}

		rows = rows[:0]
		for _, d := range r.AmountPivot.Days {
			row := []string{d}
			for _, c := range r.AmountPivot.Channels {
				row = append(row, money(r.AmountPivot.Cells[d][c]))
			}
			rows = append(rows, row)
		}
		if err := emit("recargas_monto.csv", header, rows); err != nil {
			return err
		}

		rows = nil
		for _, d := range r.CountPivot.Days {
			row := []string{d}
			for _, c := range r.CountPivot.Channels {
				row = append(row, count(r.CountPivot.Cells[d][c]))
			}
			rows = append(rows, row)
		}
		if err := emit("recargas_cant.csv", header, rows); err != nil {
			return err
		}

		rows = nil
		for _, d := range r.AveragePivot.Days {
			row := []string{d}
			for _, c := range r.AveragePivot.Channels {
				row = append(row, ratio(r.AveragePivot.Cells[d][c]))
			}
			rows = append(rows, row)
		}
		if err := emit("deposito_promedio.csv", header, rows); err != nil {
			return err
		}

		rows = nil
		for _, m := range r.ModoMovements {
			rows = append(rows, []string{id(m.AccountID), m.Day, money(m.Cents)})
		}
		return emit("movimientos_modo.csv", []string{"Documento", "Fecha", "Importe"}, rows)
	}
}

func (e *Exporter) writeWagers(r *aggregate.Report) func(func(string, []string, [][]string) error) error {
	return func(emit func(string, []string, [][]string) error) error {
		rows := make([][]string, 0, len(r.DailyTakings))
		for _, row := range r.DailyTakings {
			rows = append(rows, []string{row.Day, money(row.Cents)})
		}
		if err := emit("apuestas_diario.csv", []string{"Fecha_Dia", "Recaudacion"}, rows); err != nil {
			return err
		}

		rows = nil
		for _, row := range r.TopGamesMonth {
			rows = append(rows, []string{row.Month, row.Game, count(row.Bets), count(row.UniquePlayers), money(row.Cents)})
		}
		if err := emit("jugadores_unicos_por_juego.csv",
			[]string{"AñoMes", "Juego", "Bets_Mes", "Jugadores_Mes", "Gastado_Mes"}, rows); err != nil {
			return err
		}

		rows = nil
		for _, row := range r.TopGamesMonth {
			rows = append(rows, []string{row.Month, row.Game, count(row.Bets)})
		}
		return emit("total_juegos_mes.csv", []string{"AñoMes", "Juego", "Total_Bets"}, rows)
	}
}

func (e *Exporter) writeSummary(r *aggregate.Report) func(func(string, []string, [][]string) error) error {
	return func(emit func(string, []string, [][]string) error) error {
		rows := make([][]string, 0, len(r.KPIs))
		for _, k := range r.KPIs {
			var v string
			switch k.Kind {
			case aggregate.KPIMoney:
				v = money(k.Cents)
			case aggregate.KPIRatio:
				v = ratio(k.Ratio)
			default:
				v = count(k.Count)
			}
			rows = append(rows, []string{k.Name, v})
		}
		if err := emit("kpis.csv", []string{"KPI", "Valor"}, rows); err != nil {
			return err
		}

		rows = nil
		for _, p := range r.Comparison {
			rows = append(rows, []string{p.Period, money(p.DepositCents), money(p.WagerCents)})
		}
		return emit("comparativa_modo.csv", []string{"Periodo", "Depositos_$", "Recaudacion_$"}, rows)
	}
}

func (e *Exporter) writeRosterTables(r *aggregate.Report) func(func(string, []string, [][]string) error) error {
	return func(emit func(string, []string, [][]string) error) error {
		contactHeader := []string{"Documento", "Fecha_Alta", "Usuario", "Correo"}

		var rows [][]string
		for _, a := range r.NewModoUsers {
			rows = append(rows, []string{id(a.AccountID), day(a.RegisteredAt), a.Username, a.Email})
		}
		if err := emit("nuevos_modo.csv", contactHeader, rows); err != nil {
			return err
		}

		rows = nil
		for _, a := range r.ReactivatedModo {
			rows = append(rows, []string{id(a.AccountID), day(a.RegisteredAt), a.Username, a.Email, stamp(a.FirstModo)})
		}
		if err := emit("reactivados_modo.csv", append(contactHeader, "Fecha"), rows); err != nil {
			return err
		}

		rows = nil
		if r.HasRoster {
			label := "Total Nuevos Usuarios desde " + strings.TrimPrefix(r.Comparison[1].Period, "After ")
			rows = [][]string{{label, count(r.TotalNewModo)}}
		}
		if err := emit("total_usuarios_nuevos_modo.csv", []string{"KPI", "Valor"}, rows); err != nil {
			return err
		}

		rows = nil
		for _, c := range r.CohortRetention {
			rows = append(rows, []string{c.CohortMonth, count(c.TotalNew), count(c.Retained30), ratio(c.Rate30), ""})
		}
		if err := emit("retencion_cohorts.csv",
			[]string{"Cohorte_Mes", "Total_Nuevos_Usuarios", "Retenidos_30_Dias", "Tasa_Retencion_30_Dias", "Tasa_Retencion_7_Dias"}, rows); err != nil {
			return err
		}

		rows = nil
		for _, w := range r.WagersWithUsers {
			rows = append(rows, []string{stamp(w.Timestamp), id(w.AccountID), w.Username, w.Email, w.Game, money(w.Cents)})
		}
		if err := emit("apuestas_con_usuarios.csv",
			[]string{"Fecha", "Documento", "Usuario", "Correo", "Juego", "Importe"}, rows); err != nil {
			return err
		}

		topHeader := []string{"Documento", "Bets", "Gastado", "Usuario", "Correo"}
		if r.HasRoster {
			for _, game := range r.TopByGame {
				rows = nil
				for _, p := range game.Players {
					rows = append(rows, []string{id(p.AccountID), count(p.Bets), money(p.Cents), p.Username, p.Email})
				}
				name := "top10_" + strings.ToLower(strings.ReplaceAll(game.Key, " ", "_")) + ".csv"
				if err := emit(name, topHeader, rows); err != nil {
					return err
				}
			}
		} else {
			for _, gp := range aggregate.GamePatterns {
				name := "top10_" + strings.ToLower(strings.ReplaceAll(gp.Key, " ", "_")) + ".csv"
				if err := emit(name, topHeader, nil); err != nil {
					return err
				}
			}
		}

		rows = nil
		for _, a := range r.InactiveUsers {
			rows = append(rows, []string{id(a.AccountID), day(a.RegisteredAt), a.Username, a.Email})
		}
		return emit("usuarios_inactivos.csv", contactHeader, rows)
	}
}
