package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loteria-digital/walletledger/internal/domain/aggregate"
	"github.com/loteria-digital/walletledger/internal/domain/classify"
)

func readCSV(t *testing.T, dir, name string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func sampleReport() *aggregate.Report {
	channels := []classify.Channel{classify.ChannelMODO, classify.ChannelRetail}
	return &aggregate.Report{
		DailyTakings: []aggregate.DailyTaking{{Day: "2025-07-12", Cents: 123450}},
		ModoDaily: []aggregate.ModoDayRow{
			{Day: "2025-07-10", Count: 3, Cents: 450000, UniqueUsers: 2},
		},
		AmountPivot: aggregate.Pivot{
			Days:     []string{"2025-07-10"},
			Channels: channels,
			Cells:    map[string]map[classify.Channel]int64{"2025-07-10": {classify.ChannelMODO: 450000}},
		},
		CountPivot: aggregate.CountPivot{
			Days:     []string{"2025-07-10"},
			Channels: channels,
			Cells:    map[string]map[classify.Channel]int{"2025-07-10": {classify.ChannelMODO: 3}},
		},
		AveragePivot: aggregate.AvgPivot{
			Days:     []string{"2025-07-10"},
			Channels: channels,
			Cells:    map[string]map[classify.Channel]float64{"2025-07-10": {classify.ChannelMODO: 1500}},
		},
		KPIs: []aggregate.KPI{
			{Name: "Monto MODO $", Kind: aggregate.KPIMoney, Cents: 450000},
			{Name: "Usuarios únicos apostadores", Kind: aggregate.KPICount, Count: 7},
		},
		Comparison: []aggregate.PeriodRow{
			{Period: "Before 07/07/2025", DepositCents: 100, WagerCents: 200},
			{Period: "After 07/07/2025", DepositCents: 300, WagerCents: 400},
		},
	}
}

func TestWrite_Contract(t *testing.T) {
	dir := t.TempDir()
	written, err := New(dir).Write(sampleReport())
	require.NoError(t, err)

	// Every contract file exists even on a roster-less run.
	expected := []string{
		"modo_diario.csv", "recargas_monto.csv", "recargas_cant.csv",
		"deposito_promedio.csv", "movimientos_modo.csv",
		"apuestas_diario.csv", "jugadores_unicos_por_juego.csv", "total_juegos_mes.csv",
		"kpis.csv", "comparativa_modo.csv",
		"nuevos_modo.csv", "reactivados_modo.csv", "total_usuarios_nuevos_modo.csv",
		"retencion_cohorts.csv", "apuestas_con_usuarios.csv",
		"top10_tombo_express.csv", "top10_tombola.csv", "top10_quini6.csv", "top10_loto_plus.csv",
		"usuarios_inactivos.csv",
	}
	for _, name := range expected {
		require.Contains(t, written, name)
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}
}

func TestWrite_ModoDiario(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir).Write(sampleReport())
	require.NoError(t, err)

	rows := readCSV(t, dir, "modo_diario.csv")
	require.Equal(t, []string{"Fecha_Dia", "Recargas_MODO", "Monto_MODO", "Usuarios_Unicos"}, rows[0])
	require.Equal(t, []string{"2025-07-10", "3", "4500.00", "2"}, rows[1])
}

func TestWrite_PivotColumns(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir).Write(sampleReport())
	require.NoError(t, err)

	rows := readCSV(t, dir, "recargas_monto.csv")
	require.Equal(t, []string{"Fecha_Dia", "MODO", "Retail"}, rows[0])
	// Missing cells zero-fill.
	require.Equal(t, []string{"2025-07-10", "4500.00", "0.00"}, rows[1])

	rows = readCSV(t, dir, "recargas_cant.csv")
	require.Equal(t, []string{"2025-07-10", "3", "0"}, rows[1])
}

func TestWrite_KPIsAndComparison(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir).Write(sampleReport())
	require.NoError(t, err)

	rows := readCSV(t, dir, "kpis.csv")
	require.Equal(t, []string{"KPI", "Valor"}, rows[0])
	require.Equal(t, []string{"Monto MODO $", "4500.00"}, rows[1])
	require.Equal(t, []string{"Usuarios únicos apostadores", "7"}, rows[2])

	rows = readCSV(t, dir, "comparativa_modo.csv")
	require.Equal(t, []string{"Periodo", "Depositos_$", "Recaudacion_$"}, rows[0])
	require.Equal(t, []string{"Before 07/07/2025", "1.00", "2.00"}, rows[1])
}

func TestWrite_RosterlessDegradation(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir).Write(sampleReport())
	require.NoError(t, err)

	// Header-only files keep the dashboard's data sources resolvable.
	rows := readCSV(t, dir, "retencion_cohorts.csv")
	require.Len(t, rows, 1)
	require.Equal(t, []string{"Cohorte_Mes", "Total_Nuevos_Usuarios", "Retenidos_30_Dias",
		"Tasa_Retencion_30_Dias", "Tasa_Retencion_7_Dias"}, rows[0])

	rows = readCSV(t, dir, "top10_tombola.csv")
	require.Len(t, rows, 1)

	rows = readCSV(t, dir, "total_usuarios_nuevos_modo.csv")
	require.Len(t, rows, 1)
}

func TestWrite_RosterTables(t *testing.T) {
	r := sampleReport()
	r.HasRoster = true
	r.TotalNewModo = 1
	r.NewModoUsers = []aggregate.AccountRow{{
		AccountID:    400,
		RegisteredAt: time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
		Username:     "luciab",
		Email:        "lucia@example.com",
	}}
	r.CohortRetention = []aggregate.CohortRow{
		{CohortMonth: "2025-06", TotalNew: 2, Retained30: 1, Rate30: 50},
	}
	r.WagersWithUsers = []aggregate.WagerUserRow{{
		Timestamp: time.Date(2025, 7, 12, 9, 0, 0, 0, time.UTC),
		AccountID: 100, Username: "juanp", Email: "juan@example.com",
		Game: "Tombola", Cents: 1000,
	}}

	dir := t.TempDir()
	_, err := New(dir).Write(r)
	require.NoError(t, err)

	rows := readCSV(t, dir, "nuevos_modo.csv")
	require.Equal(t, []string{"Documento", "Fecha_Alta", "Usuario", "Correo"}, rows[0])
	require.Equal(t, []string{"400", "2025-07-10", "luciab", "lucia@example.com"}, rows[1])

	rows = readCSV(t, dir, "retencion_cohorts.csv")
	require.Equal(t, []string{"2025-06", "2", "1", "50.00", ""}, rows[1])

	rows = readCSV(t, dir, "apuestas_con_usuarios.csv")
	require.Equal(t, []string{"Fecha", "Documento", "Usuario", "Correo", "Juego", "Importe"}, rows[0])
	require.Equal(t, []string{"2025-07-12 09:00:00", "100", "juanp", "juan@example.com", "Tombola", "10.00"}, rows[1])

	rows = readCSV(t, dir, "total_usuarios_nuevos_modo.csv")
	require.Equal(t, []string{"Total Nuevos Usuarios desde 07/07/2025", "1"}, rows[1])
}
