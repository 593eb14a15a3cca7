// internal/models/divergence.go
package models

import "time"

// Severity classifies a divergence type, highest to lowest.
type Severity string

const (
	SeverityCritical      Severity = "critical"
	SeverityImportant     Severity = "important"
	SeverityWarning       Severity = "warning"
	SeverityInformational Severity = "informational"
)

// DivergenceType keys the divergence catalog.
type DivergenceType string

const (
	// critical
	TypeAlunosDuplicados DivergenceType = "alunos_duplicados"
	TypeResultadosOrfaos DivergenceType = "resultados_orfaos"
	TypeEscolasSemRegiao DivergenceType = "escolas_sem_regiao"
	TypeTurmasSemEscola  DivergenceType = "turmas_sem_escola"

	// important
	TypeMediasInconsistentes  DivergenceType = "medias_inconsistentes"
	TypeAcertosInconsistentes DivergenceType = "acertos_inconsistentes"
	TypeNotasForaIntervalo    DivergenceType = "notas_fora_intervalo"
	TypeNiveisInconsistentes  DivergenceType = "niveis_inconsistentes"
	TypeGabaritosAusentes     DivergenceType = "gabaritos_ausentes"
	TypeSeriesSemConfiguracao DivergenceType = "series_sem_configuracao"

	// warning
	TypeAnoLetivoInvalido       DivergenceType = "ano_letivo_invalido"
	TypeAusentesComRespostas    DivergenceType = "ausentes_com_respostas"
	TypeCodigosConflitantes     DivergenceType = "codigos_conflitantes"
	TypeEscolasInativasComDados DivergenceType = "escolas_inativas_com_dados"
	TypeSerieDivergenteTurma    DivergenceType = "serie_divergente_turma"
	TypeImportacoesTravadas     DivergenceType = "importacoes_travadas"

	// informational
	TypeAlunosSemResultados   DivergenceType = "alunos_sem_resultados"
	TypeEscolasSemAlunos      DivergenceType = "escolas_sem_alunos"
	TypeRegioesSemEscolas     DivergenceType = "regioes_sem_escolas"
	TypeQuestoesNaoUtilizadas DivergenceType = "questoes_nao_utilizadas"
	TypeTurmasVazias          DivergenceType = "turmas_vazias"
)

// DivergenceDetail is one concrete offending record.
type DivergenceDetail struct {
	EntityKind string `json:"entityKind"`
	EntityID   int64  `json:"entityId"`
	Name       string `json:"name,omitempty"`
	Code       string `json:"code,omitempty"`
	School     string `json:"school,omitempty"`
	Class      string `json:"class,omitempty"`
	Grade      string `json:"grade,omitempty"`
	Year       string `json:"year,omitempty"`
	Problem    string `json:"problem"`
	Current    string `json:"current,omitempty"`
	Expected   string `json:"expected,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Divergence is a detected issue instance, ephemeral to one detection run.
type Divergence struct {
	Type           DivergenceType     `json:"type"`
	Severity       Severity           `json:"severity"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Icon           string             `json:"icon,omitempty"`
	Fixable        bool               `json:"fixable"`
	AutoFixable    bool               `json:"autoFixable"`
	FixActionLabel string             `json:"fixActionLabel,omitempty"`
	Total          int                `json:"total"`
	Details        []DivergenceDetail `json:"details"`
	Truncated      bool               `json:"truncated,omitempty"`

	// Failed distinguishes "check could not run" from a true zero.
	Failed bool   `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}

// DetectionSummary buckets occurrence totals by severity.
type DetectionSummary struct {
	Critical      int `json:"critical"`
	Important     int `json:"important"`
	Warning       int `json:"warning"`
	Informational int `json:"informational"`
	Total         int `json:"total"`
	FailedChecks  int `json:"failedChecks"`
}

// DetectionReport is the result of one detection run.
type DetectionReport struct {
	Summary     DetectionSummary `json:"summary"`
	Divergences []Divergence     `json:"divergences"`
	RanAt       time.Time        `json:"ranAt"`
}
