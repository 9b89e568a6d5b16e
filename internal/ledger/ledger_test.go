package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail-expense-intake/internal/model"
	"mail-expense-intake/internal/testutil"
)

func fields() Fields {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return Fields{
		Vendor:      "Acme Hardware",
		Amount:      decimal.RequireFromString("245.50"),
		Description: "timber",
		OccurredOn:  &d,
	}
}

func TestCommitMaterials(t *testing.T) {
	db := testutil.NewDB(t)
	id, err := NewGormCommitter().Commit(context.Background(), db, "J9", model.CategoryMaterials, fields())
	require.NoError(t, err)

	var row model.Material
	require.NoError(t, db.First(&row, "id = ?", id).Error)
	assert.Equal(t, "J9", row.JobID)
	assert.Equal(t, "Acme Hardware", row.Supplier)
	assert.Equal(t, "timber", row.Description)
	assert.True(t, decimal.RequireFromString("245.50").Equal(row.Amount))
	require.NotNil(t, row.InvoiceDate)
	assert.Equal(t, "2024-03-01", row.InvoiceDate.Format("2006-01-02"))
}

func TestCommitSubtrades(t *testing.T) {
	db := testutil.NewDB(t)
	id, err := NewGormCommitter().Commit(context.Background(), db, "J9", model.CategorySubtrades, fields())
	require.NoError(t, err)

	var row model.Subtrade
	require.NoError(t, db.First(&row, "id = ?", id).Error)
	assert.Equal(t, "Acme Hardware", row.Trade)
	assert.Equal(t, "Acme Hardware", row.Contractor)
}

func TestCommitDescriptionOnlyCategories(t *testing.T) {
	db := testutil.NewDB(t)
	c := NewGormCommitter()

	f := fields()
	f.Description = ""
	id, err := c.Commit(context.Background(), db, "J9", model.CategoryTipFees, f)
	require.NoError(t, err)
	var tip model.TipFee
	require.NoError(t, db.First(&tip, "id = ?", id).Error)
	assert.Equal(t, "Acme Hardware", tip.Description)

	id, err = c.Commit(context.Background(), db, "J9", model.CategoryOtherCosts, fields())
	require.NoError(t, err)
	var other model.OtherCost
	require.NoError(t, db.First(&other, "id = ?", id).Error)
	assert.Equal(t, "timber", other.Description)
}

func TestCommitIsNotIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	c := NewGormCommitter()
	_, err := c.Commit(context.Background(), db, "J9", model.CategoryMaterials, fields())
	require.NoError(t, err)
	_, err = c.Commit(context.Background(), db, "J9", model.CategoryMaterials, fields())
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&model.Material{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCommitUnknownCategory(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := NewGormCommitter().Commit(context.Background(), db, "J9", model.Category("fuel"), fields())
	assert.Error(t, err)
}
