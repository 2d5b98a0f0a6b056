package openapi

type obj = map[string]interface{}

func prop(typ string) obj { return obj{"type": typ} }

func nullable(typ string) obj { return obj{"type": typ, "nullable": true} }

var riskBands = []string{"Low", "Medium", "High"}

// componentSchemas returns the schemas referenced by Operation.Request and
// Operation.Response.
func componentSchemas() map[string]interface{} {
	return obj{
		"Error":            buildErrorSchema(),
		"PatientRecord":    buildPatientRecordSchema(),
		"FollowupPlan":     buildFollowupPlanSchema(),
		"StaffingEstimate": buildStaffingEstimateSchema(),
		"Prediction":       buildPredictionSchema(),
		"Report":           buildReportSchema(),
		"StaffingResult":   buildStaffingResultSchema(),
		"CohortRequest":    buildCohortRequestSchema(),
		"CohortResult":     buildCohortResultSchema(),
		"CompleteRequest":  buildCompleteRequestSchema(),
		"CompleteResult":   buildCompleteResultSchema(),
		"FollowupRecord":   buildFollowupRecordSchema(),
		"FollowupPage":     buildFollowupPageSchema(),
	}
}

func buildErrorSchema() obj {
	return obj{
		"type":       "object",
		"properties": obj{"message": prop("string")},
		"required":   []string{"message"},
	}
}

// Patient records are open-ended: any clinical field may be sent and unknown
// fields are ignored. Only the fields the service reads directly are listed.
func buildPatientRecordSchema() obj {
	return obj{
		"type": "object",
		"properties": obj{
			"Patient ID":      prop("string"),
			"Patient Name":    prop("string"),
			"Problem Type":    obj{"type": "string", "example": "Heart Failure"},
			"Simulation Date": prop("string"),
			"Hospital Unit":   prop("string"),
			"Admission Date":  obj{"type": "string", "format": "date"},
			"Discharge Date":  obj{"type": "string", "format": "date"},
			"Age":             prop("number"),
		},
		"required":             []string{"Problem Type"},
		"additionalProperties": true,
	}
}

func buildFollowupPlanSchema() obj {
	return obj{
		"type": "object",
		"properties": obj{
			"risk_band": obj{"type": "string", "enum": riskBands},
			"channel":   prop("string"),
			"schedule":  obj{"type": "array", "items": prop("string")},
			"note":      prop("string"),
			"rationale": prop("string"),
		},
	}
}

func buildStaffingEstimateSchema() obj {
	return obj{
		"type": "object",
		"properties": obj{
			"expected_readmissions": prop("number"),
			"suggested_beds":        prop("integer"),
			"suggested_nurses":      prop("integer"),
			"suggested_doctors":     prop("integer"),
		},
	}
}

func buildPredictionSchema() obj {
	return obj{
		"type": "object",
		"properties": obj{
			"disease_type":            prop("string"),
			"patient_id":              prop("string"),
			"readmission_probability": obj{"type": "number", "minimum": 0, "maximum": 1},
			"prediction":              prop("string"),
			"risk_label":              obj{"type": "string", "enum": riskBands},
			"followup_plan":           schemaRef("FollowupPlan"),
			"staffing":                schemaRef("StaffingEstimate"),
			"calibration_mode":        obj{"type": "string", "enum": []string{"model", "heuristic"}},
			"severity_score":          prop("number"),
			"followup_id":             obj{"type": "string", "format": "uuid"},
			"storage_error":           prop("string"),
		},
	}
}

func buildReportSchema() obj {
	return obj{
		"type": "object",
		"properties": obj{
			"patient_id":          prop("string"),
			"patient_name":        prop("string"),
			"condition":           prop("string"),
			"condition_label":     prop("string"),
			"admission_date":      prop("string"),
			"discharge_date":      prop("string"),
			"features":            obj{"type": "object", "additionalProperties": prop("number")},
			"feature_order":       obj{"type": "array", "items": prop("string")},
			"severity_score":      prop("number"),
			"normalized_severity": prop("number"),
			"model_probability":   prop("number"),
			"calibration_mode":    obj{"type": "string", "enum": []string{"model", "heuristic"}},
			"adjusted_risk":       obj{"type": "number", "minimum": 0, "maximum": 1},
			"risk_band":           obj{"type": "string", "enum": riskBands},
			"prediction":          prop("boolean"),
			"prediction_label":    prop("string"),
			"schedule":            obj{"type": "array", "items": prop("string")},
			"staffing":            schemaRef("StaffingEstimate"),
			"simulation_date":     prop("string"),
			"hospital_unit":       prop("string"),
			"generated_at":        obj{"type": "string", "format": "date-time"},
		},
	}
}

func buildStaffingResultSchema() obj {
	return obj{
		"type": "object",
		"properties": obj{
			"simulation_date": prop("string"),
			"hospital_unit":   prop("string"),
			"risk_score":      prop("number"),
			"staffing":        schemaRef("StaffingEstimate"),
		},
	}
}

func buildCohortRequestSchema() obj {
	return obj{
		"type": "object",
		"properties": obj{
			"patients": obj{
				"type": "array",
				"items": obj{
					"type":       "object",
					"properties": obj{"risk_level": obj{"type": "string", "enum": riskBands}},
				},
			},
		},
	}
}

func buildCohortResultSchema() obj {
	return obj{
		"type": "object",
		"properties": obj{
			"total_patients":        prop("integer"),
			"risk_counts":           obj{"type": "object", "additionalProperties": prop("integer")},
			"expected_readmissions": prop("number"),
			"required_doctors":      prop("integer"),
			"required_nurses":       prop("integer"),
			"required_beds":         prop("integer"),
			"message":               prop("string"),
		},
	}
}

func buildCompleteRequestSchema() obj {
	return obj{
		"type":       "object",
		"properties": obj{"Patient ID": prop("string")},
		"required":   []string{"Patient ID"},
	}
}

func buildCompleteResultSchema() obj {
	return obj{
		"type": "object",
		"properties": obj{
			"message": prop("string"),
			"updated": prop("integer"),
		},
	}
}

func buildFollowupRecordSchema() obj {
	return obj{
		"type": "object",
		"properties": obj{
			"id":              obj{"type": "string", "format": "uuid"},
			"patient_id":      prop("string"),
			"patient_name":    prop("string"),
			"condition":       prop("string"),
			"adjusted_risk":   prop("number"),
			"risk_band":       obj{"type": "string", "enum": riskBands},
			"channel":         prop("string"),
			"next_visit":      prop("string"),
			"simulation_date": prop("string"),
			"hospital_unit":   prop("string"),
			"prediction_date": obj{"type": "string", "format": "date-time"},
			"status":          obj{"type": "string", "enum": []string{"Pending", "Completed"}},
			"completed_at":    nullable("string"),
			"created_at":      obj{"type": "string", "format": "date-time"},
		},
	}
}

func buildFollowupPageSchema() obj {
	return obj{
		"type": "object",
		"properties": obj{
			"data":     obj{"type": "array", "items": schemaRef("FollowupRecord")},
			"total":    prop("integer"),
			"limit":    prop("integer"),
			"offset":   prop("integer"),
			"has_more": prop("boolean"),
			"links": obj{
				"type": "array",
				"items": obj{
					"type": "object",
					"properties": obj{
						"relation": prop("string"),
						"url":      prop("string"),
					},
				},
			},
		},
	}
}
