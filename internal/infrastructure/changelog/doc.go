// Package changelog provides the audit sinks that committed deductions are
// appended to: the relational table, a Kafka topic and the structured log.
// Sinks are composed by NewFromConfig according to change_log.sinks.
package changelog
