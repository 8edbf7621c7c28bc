package service

// Response schemas in the Gemini OpenAPI subset. Each mirrors the
// validate tags of the matching domain result type.

func objectSchema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "OBJECT", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func stringSchema(desc string) map[string]any {
	return map[string]any{"type": "STRING", "description": desc}
}

func enumSchema(desc string, values ...string) map[string]any {
	return map[string]any{"type": "STRING", "description": desc, "enum": values}
}

func intSchema(desc string) map[string]any {
	return map[string]any{"type": "INTEGER", "description": desc}
}

func numberSchema(desc string) map[string]any {
	return map[string]any{"type": "NUMBER", "description": desc}
}

func boolSchema(desc string) map[string]any {
	return map[string]any{"type": "BOOLEAN", "description": desc}
}

func arraySchema(desc string, items map[string]any) map[string]any {
	return map[string]any{"type": "ARRAY", "description": desc, "items": items}
}

var prioritizeSchema = objectSchema(map[string]any{
	"prioritized_tasks": arraySchema("Tarefas ordenadas da mais à menos indicada agora.", objectSchema(map[string]any{
		"id":     stringSchema("Id exato da tarefa recebida."),
		"rank":   intSchema("Posição, começando em 1."),
		"reason": stringSchema("Motivo curto considerando humor e energia."),
		"suggested_subtasks": arraySchema("Passos pequenos opcionais.", objectSchema(map[string]any{
			"title":             stringSchema("Passo."),
			"estimated_minutes": intSchema("Minutos estimados."),
		}, "title", "estimated_minutes")),
		"action": enumSchema("O que fazer com a tarefa.", "start_now", "suggest_later", "delegate"),
	}, "id", "rank", "reason", "action")),
	"summary":                 stringSchema("Resumo motivador em uma frase."),
	"total_estimated_minutes": intSchema("Soma dos minutos das tarefas para começar agora."),
}, "prioritized_tasks", "summary", "total_estimated_minutes")

var subtasksSchema = objectSchema(map[string]any{
	"subtasks": arraySchema("De 3 a 7 subtarefas acionáveis.", objectSchema(map[string]any{
		"title":             stringSchema("Subtarefa."),
		"estimated_minutes": intSchema("Minutos estimados."),
		"difficulty":        intSchema("Dificuldade de 1 a 5."),
	}, "title", "estimated_minutes", "difficulty")),
	"total_estimated_minutes": intSchema("Soma dos minutos."),
	"notes":                   stringSchema("Dica curta para começar."),
}, "subtasks", "total_estimated_minutes")

var timeBoxSchema = objectSchema(map[string]any{
	"selection": arraySchema("Tarefas que cabem no tempo livre.", objectSchema(map[string]any{
		"id":                stringSchema("Id exato da tarefa recebida."),
		"title":             stringSchema("Título da tarefa."),
		"estimated_minutes": intSchema("Minutos estimados."),
	}, "id", "title", "estimated_minutes")),
	"total_minutes": intSchema("Soma dos minutos escolhidos, sem ultrapassar o tempo livre."),
	"reason":        stringSchema("Por que esta combinação."),
}, "selection", "total_minutes", "reason")

var coachSchema = objectSchema(map[string]any{
	"conversation": arraySchema("Falas do coach.", objectSchema(map[string]any{
		"role": enumSchema("Tipo da fala.", "coach", "suggestions", "plan10min"),
		"text": stringSchema("Texto da fala."),
		"items": arraySchema("Sugestões.", objectSchema(map[string]any{
			"title": stringSchema("Sugestão."),
		}, "title")),
		"steps": arraySchema("Plano de 10 minutos.", objectSchema(map[string]any{
			"minute": intSchema("Minuto de 0 a 10."),
			"action": stringSchema("Ação."),
		}, "minute", "action")),
	}, "role")),
	"summary": stringSchema("Resumo em uma frase."),
}, "conversation", "summary")

var insightStat = objectSchema(map[string]any{
	"title":        stringSchema("Tipo ou título de tarefa."),
	"count":        intSchema("Quantidade."),
	"avg_duration": numberSchema("Duração média em minutos."),
}, "title", "count", "avg_duration")

var insightsSchema = objectSchema(map[string]any{
	"top_tiring":      arraySchema("Tarefas que mais cansam.", insightStat),
	"top_pleasure":    arraySchema("Tarefas que mais dão prazer.", insightStat),
	"recommendations": arraySchema("Recomendações práticas.", stringSchema("Recomendação.")),
	"visuals": arraySchema("Sugestões de gráficos.", objectSchema(map[string]any{
		"type":  stringSchema("Tipo de gráfico."),
		"field": stringSchema("Campo representado."),
		"note":  stringSchema("Observação."),
	}, "type", "field")),
}, "top_tiring", "top_pleasure", "recommendations", "visuals")

var voiceSchema = objectSchema(map[string]any{
	"tipo":                 enumSchema("Tipo do comando.", "tarefa", "lembrete", "evento", "projeto"),
	"titulo":               stringSchema("Título curto."),
	"descricao":            stringSchema("Descrição."),
	"data":                 stringSchema("Data no formato YYYY-MM-DD, vazia se não dita."),
	"hora":                 stringSchema("Hora no formato HH:MM, vazia se não dita."),
	"local":                stringSchema("Local, se houver."),
	"categoria":            stringSchema("Categoria curta."),
	"prioridade":           enumSchema("Prioridade.", "Baixa", "Média", "Alta"),
	"subtarefas":           arraySchema("Subtarefas ditas.", stringSchema("Subtarefa.")),
	"necessitaConfirmacao": boolSchema("Se algo ficou ambíguo."),
	"perguntaParaUsuario":  stringSchema("Pergunta de confirmação, se necessária."),
}, "tipo", "titulo", "prioridade", "necessitaConfirmacao")

var enhanceSchema = objectSchema(map[string]any{
	"description": stringSchema("Uma descrição breve e motivadora da tarefa."),
	"priority":    enumSchema("Nível de prioridade sugerido: 'Alta', 'Média' ou 'Baixa'.", "Alta", "Média", "Baixa"),
	"category":    stringSchema("Uma categoria curta (ex: Trabalho, Saúde, Estudo, Casa)."),
	"subtasks":    arraySchema("Uma lista de 3 a 5 subtarefas acionáveis para completar a tarefa principal.", map[string]any{"type": "STRING"}),
}, "description", "priority", "subtasks", "category")

const (
	instructionGTD     = "Você é um assistente de produtividade especialista em GTD (Getting Things Done). Seu objetivo é tornar tarefas vagas em planos acionáveis."
	instructionCoach   = "Você é um coach de produtividade gentil para pessoas que procrastinam. Seja breve, prático e acolhedor. Responda em Português do Brasil."
	instructionPlanner = "Você organiza o dia de quem tem pouca energia. Use apenas os ids de tarefas recebidos. Responda em Português do Brasil."
	instructionVoice   = "Você transforma comandos de voz em português em itens de agenda estruturados. Datas relativas usam a data de referência informada."
)
