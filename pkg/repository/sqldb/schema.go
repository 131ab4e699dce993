package sqldb

import (
	"strconv"
	"strings"
)

// schema is portable between SQLite and PostgreSQL. Row ids are assigned by the loader.
const schema = `
CREATE TABLE IF NOT EXISTS cluster (
	id BIGINT PRIMARY KEY,
	quality INTEGER NOT NULL,
	number_of_spectra INTEGER NOT NULL DEFAULT 0,
	number_of_psms INTEGER NOT NULL DEFAULT 0,
	number_of_projects INTEGER NOT NULL DEFAULT 0,
	avg_precursor_charge DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_precursor_mz DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS clustered_psm (
	id BIGINT PRIMARY KEY,
	cluster_id BIGINT NOT NULL REFERENCES cluster(id),
	sequence TEXT NOT NULL,
	modifications TEXT NOT NULL DEFAULT '',
	assay_id BIGINT NOT NULL,
	num_spectra INTEGER NOT NULL DEFAULT 0,
	delta_mz DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS clustered_psm_cluster_idx ON clustered_psm(cluster_id);

CREATE TABLE IF NOT EXISTS assay (
	id BIGINT PRIMARY KEY,
	accession TEXT NOT NULL DEFAULT '',
	project_accession TEXT NOT NULL DEFAULT '',
	taxonomy_ids TEXT NOT NULL DEFAULT '',
	species TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS release_info (
	version TEXT NOT NULL,
	created_at TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);
`

// Release dates are stored as ISO 8601 days
const releaseDateFormat = "2006-01-02"

// rebind rewrites '?' placeholders to the driver's bind style.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// joinList stores a list column as a comma-separated string
func joinList(values []string) string {
	return strings.Join(values, ",")
}

// splitList is the inverse of joinList; empty elements are dropped
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
