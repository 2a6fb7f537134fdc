package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/CargoDock/internal/apperrors"
	"github.com/BearBump/CargoDock/internal/models"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return New(func() time.Time { return testNow })
}

func allStatuses() []string {
	return []string{
		models.StatusPlannedAirfreight, models.StatusPlannedSeafreight,
		models.StatusInTransitAirfreight, models.StatusInTransitSeafreight,
		models.StatusArrivedPTA, models.StatusArrivedKLM, models.StatusArrivedOffsite,
		models.StatusUnloading, models.StatusInspectionPending, models.StatusInspecting,
		models.StatusInspectionPassed, models.StatusInspectionFailed,
		models.StatusReceiving, models.StatusReceived,
		models.StatusRejected, models.StatusStored, models.StatusArchived,
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// Каждая операция проходит ровно из своих исходных статусов и отклоняется
// из всех остальных, не трогая запись.
func TestEngine_TransitionLegality(t *testing.T) {
	e := newTestEngine()

	cases := []struct {
		name   string
		apply  func(models.Shipment) (models.Shipment, error)
		from   []string
		result string
	}{
		{
			name:   "start unloading",
			apply:  func(r models.Shipment) (models.Shipment, error) { return e.StartUnloading(r, "op") },
			from:   []string{models.StatusArrivedPTA, models.StatusArrivedKLM, models.StatusArrivedOffsite},
			result: models.StatusUnloading,
		},
		{
			name:   "complete unloading",
			apply:  func(r models.Shipment) (models.Shipment, error) { return e.CompleteUnloading(r, "op") },
			from:   []string{models.StatusUnloading},
			result: models.StatusInspectionPending,
		},
		{
			name:   "start inspection",
			apply:  func(r models.Shipment) (models.Shipment, error) { return e.StartInspection(r, "insp") },
			from:   []string{models.StatusInspectionPending},
			result: models.StatusInspecting,
		},
		{
			name: "complete inspection passed",
			apply: func(r models.Shipment) (models.Shipment, error) {
				return e.CompleteInspection(r, true, "", "insp")
			},
			from:   []string{models.StatusInspecting},
			result: models.StatusInspectionPassed,
		},
		{
			name:   "start receiving",
			apply:  func(r models.Shipment) (models.Shipment, error) { return e.StartReceiving(r, "rcv") },
			from:   []string{models.StatusInspectionPassed},
			result: models.StatusReceiving,
		},
		{
			name:   "complete receiving",
			apply:  func(r models.Shipment) (models.Shipment, error) { return e.CompleteReceiving(r, 5, "rcv") },
			from:   []string{models.StatusReceiving},
			result: models.StatusReceived,
		},
		{
			name:   "reject",
			apply:  func(r models.Shipment) (models.Shipment, error) { return e.Reject(r, "damaged", "insp") },
			from:   []string{models.StatusInspectionFailed},
			result: models.StatusRejected,
		},
		{
			name:   "store",
			apply:  func(r models.Shipment) (models.Shipment, error) { return e.Store(r, "wh") },
			from:   []string{models.StatusReceived},
			result: models.StatusStored,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, status := range allStatuses() {
				rec := models.Shipment{ID: 1, OrderRef: "PO-1", Status: status}
				got, err := tc.apply(rec)
				if contains(tc.from, status) {
					require.NoError(t, err, "from %s", status)
					require.Equal(t, tc.result, got.Status)
					continue
				}
				require.Error(t, err, "from %s", status)
				var conflict *apperrors.ConflictError
				require.ErrorAs(t, err, &conflict)
				require.ElementsMatch(t, tc.from, conflict.ValidStatuses)
				// Запись не изменилась.
				require.Equal(t, status, got.Status)
				require.Equal(t, rec, got)
			}
		})
	}
}

func TestEngine_Archive_AnyNonArchived(t *testing.T) {
	e := newTestEngine()
	for _, status := range allStatuses() {
		rec := models.Shipment{ID: 1, Status: status}
		got, err := e.Archive(rec, "admin")
		if status == models.StatusArchived {
			var conflict *apperrors.ConflictError
			require.ErrorAs(t, err, &conflict)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, models.StatusArchived, got.Status)
		require.NotNil(t, got.PreviousStatus)
		require.Equal(t, status, *got.PreviousStatus)
		require.NotNil(t, got.ArchivedAt)
	}
}

func TestEngine_Unarchive_RestoresPriorStatus(t *testing.T) {
	e := newTestEngine()
	rec := models.Shipment{ID: 1, Status: models.StatusReceiving}

	archived, err := e.Archive(rec, "admin")
	require.NoError(t, err)

	restored, err := e.Unarchive(archived, "admin")
	require.NoError(t, err)
	require.Equal(t, models.StatusReceiving, restored.Status)
	require.Nil(t, restored.PreviousStatus)
	require.Nil(t, restored.ArchivedAt)
}

func TestEngine_Unarchive_WithoutPriorStatus(t *testing.T) {
	e := newTestEngine()
	rec := models.Shipment{ID: 1, Status: models.StatusArchived}

	_, err := e.Unarchive(rec, "admin")
	var validation *apperrors.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestEngine_FailedInspectionBlocksReceiving(t *testing.T) {
	e := newTestEngine()
	rec := models.Shipment{ID: 1, Status: models.StatusInspecting}

	failed, err := e.CompleteInspection(rec, false, "damaged", "A")
	require.NoError(t, err)
	require.Equal(t, models.StatusInspectionFailed, failed.Status)

	_, err = e.StartReceiving(failed, "rcv")
	var conflict *apperrors.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, []string{models.StatusInspectionPassed}, conflict.ValidStatuses)
}

func TestEngine_InspectorFallback(t *testing.T) {
	e := newTestEngine()
	rec := models.Shipment{ID: 1, Status: models.StatusInspectionPending}

	inspecting, err := e.StartInspection(rec, "A")
	require.NoError(t, err)

	// Инспектор не передан — остаётся записанный при старте.
	done, err := e.CompleteInspection(inspecting, true, "ok", "")
	require.NoError(t, err)
	require.NotNil(t, done.InspectedBy)
	require.Equal(t, "A", *done.InspectedBy)
}

func TestEngine_EndToEndArrivalToFailedInspection(t *testing.T) {
	e := newTestEngine()
	rec := models.Shipment{ID: 7, OrderRef: "PO-7", Status: models.StatusArrivedPTA}

	rec, err := e.StartUnloading(rec, "op")
	require.NoError(t, err)
	require.Equal(t, models.StatusUnloading, rec.Status)
	require.NotNil(t, rec.UnloadingStartedAt)
	require.Equal(t, testNow, *rec.UnloadingStartedAt)

	rec, err = e.CompleteUnloading(rec, "op")
	require.NoError(t, err)
	require.Equal(t, models.StatusInspectionPending, rec.Status)
	require.NotNil(t, rec.UnloadingCompletedAt)

	rec, err = e.StartInspection(rec, "A")
	require.NoError(t, err)
	require.Equal(t, models.StatusInspecting, rec.Status)
	require.Equal(t, models.StageInProgress, *rec.InspectionStatus)

	rec, err = e.CompleteInspection(rec, false, "damaged", "")
	require.NoError(t, err)
	require.Equal(t, models.StatusInspectionFailed, rec.Status)
	require.Equal(t, models.StageFailed, *rec.InspectionStatus)
	require.Equal(t, "damaged", *rec.InspectionNotes)
	require.Equal(t, "A", *rec.InspectedBy)

	// Повторный start inspection — конфликт с указанием нужного статуса.
	_, err = e.StartInspection(rec, "B")
	var conflict *apperrors.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, []string{models.StatusInspectionPending}, conflict.ValidStatuses)
}

func TestEngine_CompleteReceivingSetsQuantity(t *testing.T) {
	e := newTestEngine()
	rec := models.Shipment{ID: 1, Status: models.StatusInspectionPassed}

	rec, err := e.StartReceiving(rec, "R1")
	require.NoError(t, err)
	require.Equal(t, models.StageInProgress, *rec.ReceivingStatus)

	rec, err = e.CompleteReceiving(rec, 42, "")
	require.NoError(t, err)
	require.Equal(t, models.StatusReceived, rec.Status)
	require.Equal(t, models.StageCompleted, *rec.ReceivingStatus)
	require.Equal(t, int32(42), *rec.ReceivedQuantity)
	require.Equal(t, "R1", *rec.ReceivedBy)
}
