// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushimsaini/hospital-management/internal/models"
)

func TestValidateStruct_BatchRequest(t *testing.T) {
	valid := models.BatchPredictRequest{
		Records: []map[string]interface{}{{"age": 50.0}},
	}
	assert.Nil(t, ValidateStruct(&valid))

	missing := models.BatchPredictRequest{}
	err := ValidateStruct(&missing)
	require.NotNil(t, err)
	require.Len(t, err.Errors(), 1)
	assert.Equal(t, "Records", err.Errors()[0].Field())
	assert.Equal(t, "required", err.Errors()[0].Tag())
	assert.Contains(t, err.Error(), "Records is required")

	empty := models.BatchPredictRequest{Records: []map[string]interface{}{}}
	err = ValidateStruct(&empty)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "at least 1")
}

func TestGetValidator_Singleton(t *testing.T) {
	assert.Same(t, GetValidator(), GetValidator())
}
