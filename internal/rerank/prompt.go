// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rerank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/pdiddy/policy-match/pkg/types"
)

// systemPromptTmpl instructs the model to answer with JSON only.
var systemPromptTmpl = template.Must(template.New("rerank").Parse(`너는 KB 소호 컨설팅 보조 에이전트다.
- JSON으로만 응답한다. {"results": [...]} 형태의 객체를 반환한다.
- 최대 {{.TopK}}개 추천.
- 각 항목: id, score(0~10), reason(한두 문장), matchedConditions(문자열 배열), url.
- id는 반드시 candidates에 있는 값만 사용한다.
- 근거 없으면 추천하지 않는다. 확정 표현 금지.
`))

// Prompt is one ranking request: instructions plus a JSON payload.
type Prompt struct {
	System string
	User   string
}

// payload is the user message body.
type payload struct {
	UserContext string            `json:"userContext"`
	Candidates  []types.Candidate `json:"candidates"`
}

// BuildPrompt renders the system instructions and the JSON payload.
func BuildPrompt(userContext string, candidates []types.Candidate, topK int) (Prompt, error) {
	var sys bytes.Buffer
	if err := systemPromptTmpl.Execute(&sys, struct{ TopK int }{topK}); err != nil {
		return Prompt{}, fmt.Errorf("rendering system prompt: %w", err)
	}

	body, err := json.MarshalIndent(payload{UserContext: userContext, Candidates: candidates}, "", "  ")
	if err != nil {
		return Prompt{}, fmt.Errorf("marshaling payload: %w", err)
	}
	return Prompt{System: sys.String(), User: string(body)}, nil
}
