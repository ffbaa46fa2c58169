package analytics

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"toylytics/internal/funnel"
)

// FunnelStageCount is one stage of the purchase funnel: the filtered sessions
// whose journey ended there and how many of those sessions placed an order.
type FunnelStageCount struct {
	Stage       funnel.Stage `json:"stage"`
	Sessions    int64        `json:"sessions"`
	Conversions int64        `json:"conversions"`
}

// GetFunnelStages computes session counts and conversions for every funnel
// stage in journey order. Each session is attributed to exactly one stage,
// the deepest one any of its pageviews is mapped to, so summing sessions
// across stages never exceeds the total number of distinct sessions. A
// session converts when any order references it, regardless of the order
// filter, since conversion is a property of the session itself. All five
// stages are always present; stages nothing reached report zeros, and
// sessions with only unmapped pageviews are excluded entirely.
func GetFunnelStages(db *gorm.DB, params QueryParams, mapping *funnel.Mapping) ([]FunnelStageCount, error) {
	sessionConditions, sessionArgs := params.Selection.SessionConditions("s")

	results := make([]FunnelStageCount, len(funnel.Stages()))
	for i, stage := range funnel.Stages() {
		results[i] = FunnelStageCount{Stage: stage}
	}

	// Rank pageview paths by stage order so MAX picks the deepest stage a
	// session reached.
	var caseBranches []string
	var caseArgs []interface{}
	for i, stage := range funnel.Stages() {
		paths := mapping.PathsFor(stage)
		if len(paths) == 0 {
			continue
		}
		caseBranches = append(caseBranches,
			fmt.Sprintf("WHEN p.pageview_url IN (%s) THEN %d", generatePlaceholders(len(paths)), i))
		for _, path := range paths {
			caseArgs = append(caseArgs, path)
		}
	}
	if len(caseBranches) == 0 {
		return results, nil
	}

	query := fmt.Sprintf(`
	SELECT stage_index, COUNT(*) as sessions, SUM(converted) as conversions
	FROM (
		SELECT
			s.website_session_id,
			MAX(CASE %s END) as stage_index,
			MAX(CASE WHEN o.order_id IS NOT NULL THEN 1 ELSE 0 END) as converted
		FROM website_sessions s
		INNER JOIN website_pageviews p ON p.website_session_id = s.website_session_id
		LEFT JOIN orders o ON o.website_session_id = s.website_session_id
		WHERE %s
		GROUP BY s.website_session_id
	) deepest
	WHERE stage_index IS NOT NULL
	GROUP BY stage_index
	`, strings.Join(caseBranches, " "), sessionConditions)

	args := append([]interface{}{}, caseArgs...)
	args = append(args, sessionArgs...)

	var rows []struct {
		StageIndex  int
		Sessions    int64
		Conversions int64
	}
	if err := db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("error fetching funnel stages: %w", err)
	}

	for _, row := range rows {
		if row.StageIndex < 0 || row.StageIndex >= len(results) {
			continue
		}
		results[row.StageIndex].Sessions = row.Sessions
		results[row.StageIndex].Conversions = row.Conversions
	}

	return results, nil
}
