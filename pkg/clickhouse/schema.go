package clickhouse

import "fmt"

// Schema returns the DDL for the bar source and match sink tables.
func Schema(database, barsTable, matchesTable string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    country LowCardinality(String),
    date    Date,
    open    Float64,
    high    Float64,
    low     Float64,
    close   Float64
) ENGINE = ReplacingMergeTree
ORDER BY (country, date)`, database, barsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    run_id       UUID,
    country      LowCardinality(String),
    pattern      LowCardinality(String),
    date         Date,
    idx          UInt32,
    open         Float64,
    high         Float64,
    low          Float64,
    close        Float64,
    body         Float64,
    q25_body     Float64,
    q50_body     Float64,
    generated_at DateTime64(3)
) ENGINE = ReplacingMergeTree(generated_at)
ORDER BY (country, pattern, date)`, database, matchesTable),
	}
}
