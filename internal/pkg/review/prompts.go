package review

const (
	systemPrompt = `Você revisa tabelas de movimentação de perdas esperadas (ECL) extraídas por OCR
		de demonstrações financeiras de um banco brasileiro.
		Em cada linha o saldo final deveria ser igual ao saldo inicial mais a soma dos movimentos
		(transferências entre estágios, baixas para prejuízo, constituição/(reversão)).
		A linha informada não fecha. Aponte a célula com maior chance de ter sido lida errado pelo OCR
		e o valor provável. Não corrija a tabela. Valores entre parênteses são negativos.
		Responda apenas com um JSON válido, sem texto adicional.`

	suggestionSchema = `
		Campos do JSON:
		suspected_column: string (cabeçalho da coluna suspeita),
		read_value: string (valor como aparece na tabela),
		likely_value: string (valor provável no formato pt-BR),
		rationale: string (uma frase),
		confidence: number (0.0 a 1.0).`
)
