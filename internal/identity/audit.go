package identity

import "sort"

// minAuditFaces is the minimum number of embedded records a person needs
// before outlier detection is meaningful.
const minAuditFaces = 3

// AuditPerson computes the person's centroid and mean distance-to-centroid
// and flags member records that exceed the configured outlier bound, sorted
// by descending distance. Excluded records are not considered. Persons with
// fewer than three embedded records get their mean reported but no outlier
// findings.
//
// Auditing is read-only; acting on findings goes through ApplyExclusions.
func (e *Engine) AuditPerson(personUID string) *PersonAudit {
	idx := e.index.Load()

	var members []*FaceRecord
	for _, rec := range idx.snapshotIn(SearchMatches) {
		if rec.PersonUID == personUID {
			members = append(members, rec)
		}
	}
	return e.auditMembers(personUID, members)
}

// AuditAll audits every person with enough data, ordered by descending mean
// distance so the least consistent identities surface first. Drives the
// global review queue.
func (e *Engine) AuditAll() []PersonAudit {
	idx := e.index.Load()

	byPerson := make(map[string][]*FaceRecord)
	for _, rec := range idx.snapshotIn(SearchMatches) {
		byPerson[rec.PersonUID] = append(byPerson[rec.PersonUID], rec)
	}

	audits := make([]PersonAudit, 0, len(byPerson))
	for personUID, members := range byPerson {
		if len(members) < minAuditFaces {
			continue
		}
		audits = append(audits, *e.auditMembers(personUID, members))
	}

	sort.Slice(audits, func(i, j int) bool {
		if audits[i].MeanDistance != audits[j].MeanDistance {
			return audits[i].MeanDistance > audits[j].MeanDistance
		}
		return audits[i].PersonUID < audits[j].PersonUID
	})
	return audits
}

func (e *Engine) auditMembers(personUID string, members []*FaceRecord) *PersonAudit {
	audit := &PersonAudit{
		PersonUID: personUID,
		FaceCount: len(members),
		Outliers:  []AuditFinding{},
	}
	if len(members) == 0 {
		return audit
	}

	embeddings := make([][]float32, len(members))
	for i, rec := range members {
		embeddings[i] = rec.Embedding
	}
	center := centroid(embeddings)

	distances := make([]float64, len(members))
	var total float64
	for i, rec := range members {
		distances[i] = CosineDistance(center, rec.Embedding)
		total += distances[i]
	}
	audit.MeanDistance = total / float64(len(members))

	if len(members) < minAuditFaces {
		return audit
	}

	bound := e.cfg.Outliers.bound(audit.MeanDistance)
	for i, rec := range members {
		if distances[i] > bound {
			audit.Outliers = append(audit.Outliers, AuditFinding{
				RecordID: rec.ID,
				PhotoUID: rec.PhotoUID,
				Distance: distances[i],
			})
		}
	}

	sort.Slice(audit.Outliers, func(i, j int) bool {
		if audit.Outliers[i].Distance != audit.Outliers[j].Distance {
			return audit.Outliers[i].Distance > audit.Outliers[j].Distance
		}
		return audit.Outliers[i].RecordID < audit.Outliers[j].RecordID
	})
	return audit
}
