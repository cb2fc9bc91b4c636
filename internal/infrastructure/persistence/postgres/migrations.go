package postgres

// Migrations returns the schema steps in version order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_infants", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_growth_records", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_assessments", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: INFANTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS infants (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) NOT NULL,
    mother_name VARCHAR(100) NOT NULL DEFAULT '',
    date_of_birth DATE NOT NULL,
    sex VARCHAR(10) NOT NULL DEFAULT 'unknown'
        CHECK (sex IN ('unknown', 'male', 'female')),
    risk_status VARCHAR(64) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_infants_name ON infants (name);
CREATE INDEX IF NOT EXISTS idx_infants_risk_status ON infants (risk_status)
    WHERE risk_status <> '' AND risk_status <> 'Normal';
`

const migration001Down = `
DROP TABLE IF EXISTS infants;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: GROWTH RECORDS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS growth_records (
    id UUID PRIMARY KEY,
    infant_id UUID NOT NULL REFERENCES infants(id) ON DELETE CASCADE,
    weight_kg NUMERIC(5,2) NOT NULL CHECK (weight_kg > 0.5 AND weight_kg < 40),
    height_cm NUMERIC(5,2) NOT NULL CHECK (height_cm > 20 AND height_cm < 150),
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_growth_records_infant_recorded
    ON growth_records (infant_id, recorded_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS growth_records;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ASSESSMENTS
// ══════════════════════════════════════════════════════════════════════════════

// One assessment per growth record. Rows are insert-only.
const migration003Up = `
CREATE TABLE IF NOT EXISTS assessments (
    id UUID PRIMARY KEY,
    growth_record_id UUID NOT NULL UNIQUE REFERENCES growth_records(id) ON DELETE CASCADE,
    infant_id UUID NOT NULL REFERENCES infants(id) ON DELETE CASCADE,
    age_months INTEGER NOT NULL CHECK (age_months >= 0),
    z_scores JSONB NOT NULL,
    primary_factor VARCHAR(32) NOT NULL,
    severity VARCHAR(16) NOT NULL,
    risk_level VARCHAR(128) NOT NULL,
    advisory_text TEXT NOT NULL CHECK (advisory_text <> ''),
    generated_by VARCHAR(16) NOT NULL CHECK (generated_by IN ('model', 'fallback')),
    standard_version VARCHAR(64) NOT NULL,
    assessed_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_infant_assessed
    ON assessments (infant_id, assessed_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS assessments;
`
