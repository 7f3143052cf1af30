// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

// Package kvstore is the BadgerDB implementation of the batch state store,
// selected with database.backend: badger.
//
// Keys:
//
//	batch:{id}                              JSON AuditBatch
//	result:{batchID}:{courseID:020d}        JSON CourseAuditResult
//	result:standalone:{courseID:020d}       JSON CourseAuditResult
//
// Course ids are zero padded so that a prefix scan returns a batch's results
// ordered by course id.
package kvstore
