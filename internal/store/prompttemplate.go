package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragforge/ragforge/internal/prompt"
	"github.com/ragforge/ragforge/internal/rferrors"
)

// PromptTemplateRepo implements search.TemplateLookup and the broader
// prompt-template CRUD the admin path needs.
type PromptTemplateRepo struct {
	pool *pgxpool.Pool
}

func NewPromptTemplateRepo(pool *pgxpool.Pool) *PromptTemplateRepo {
	return &PromptTemplateRepo{pool: pool}
}

// DefaultTemplate resolves the (user, type) default template, satisfying
// search.TemplateLookup and cot.Reasoner's Templates dependency.
func (r *PromptTemplateRepo) DefaultTemplate(ctx context.Context, userID string, templateType prompt.TemplateType) (*prompt.Template, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, type, COALESCE(system_prompt, ''), format, input_variables, context_strategy, COALESCE(max_context_length, 0), stop_sequences, is_default
		FROM prompt_templates WHERE user_id = $1 AND type = $2 AND is_default
	`, userID, string(templateType))

	var tpl prompt.Template
	var typeStr string
	var inputVarsRaw, contextRaw, stopRaw []byte
	err := row.Scan(&tpl.ID, &tpl.OwnerID, &typeStr, &tpl.SystemPrompt, &tpl.Format, &inputVarsRaw, &contextRaw, &tpl.MaxContextLen, &stopRaw, &tpl.IsDefault)
	if err != nil {
		return nil, rferrors.NotFound("prompt_template", userID+":"+string(templateType))
	}
	tpl.Type = prompt.TemplateType(typeStr)
	if err := json.Unmarshal(inputVarsRaw, &tpl.InputVars); err != nil {
		return nil, err
	}
	if len(contextRaw) > 0 {
		var ctxStrategy prompt.ContextStrategy
		if err := json.Unmarshal(contextRaw, &ctxStrategy); err == nil {
			tpl.Context = &ctxStrategy
		}
	}
	if len(stopRaw) > 0 {
		_ = json.Unmarshal(stopRaw, &tpl.StopSequences)
	}
	return &tpl, nil
}

// DefaultTemplateID resolves a user's default RAG_QUERY template id,
// satisfying internal/pipeline's TemplateLookup dependency.
func (r *PromptTemplateRepo) DefaultTemplateID(ctx context.Context, userID string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM prompt_templates WHERE user_id = $1 AND type = $2 AND is_default
	`, userID, string(prompt.TypeRAGQuery)).Scan(&id)
	if err != nil {
		return "", rferrors.NotFound("prompt_template", userID)
	}
	return id, nil
}

// Upsert writes a template row, used by the admin path to seed defaults.
func (r *PromptTemplateRepo) Upsert(ctx context.Context, tpl prompt.Template) error {
	inputVars, err := json.Marshal(tpl.InputVars)
	if err != nil {
		return err
	}
	var contextRaw []byte
	if tpl.Context != nil {
		contextRaw, err = json.Marshal(tpl.Context)
		if err != nil {
			return err
		}
	}
	stopRaw, err := json.Marshal(tpl.StopSequences)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO prompt_templates (id, user_id, type, system_prompt, format, input_variables, context_strategy, max_context_length, stop_sequences, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET system_prompt = EXCLUDED.system_prompt, format = EXCLUDED.format,
			input_variables = EXCLUDED.input_variables, context_strategy = EXCLUDED.context_strategy,
			max_context_length = EXCLUDED.max_context_length, stop_sequences = EXCLUDED.stop_sequences
	`, tpl.ID, tpl.OwnerID, string(tpl.Type), tpl.SystemPrompt, tpl.Format, inputVars, contextRaw, tpl.MaxContextLen, stopRaw, tpl.IsDefault)
	return err
}
