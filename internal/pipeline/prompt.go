package pipeline

import (
	"fmt"
	"strings"
)

const persona = `Você é um chatbot educacional acessível e amigável chamado ED, criado para ajudar estudantes universitários.
Responda à pergunta do usuário de forma clara, prestativa e concisa.`

// freePrompt wraps the raw utterance in the assistant persona for open-ended
// generation.
func freePrompt(text string) string {
	return fmt.Sprintf("%s\n\nPergunta do usuário: %q\nSua resposta:", persona, text)
}

// simplifyPrompt instructs the model to explain as simply as possible. Used
// when the caller forces simplification for the whole turn.
func simplifyPrompt(text string) string {
	return fmt.Sprintf(`%s

Explique da forma MAIS SIMPLES possível, em passos curtos, com frases diretas e um exemplo do dia a dia.

Pergunta do usuário: %q
Sua resposta:`, persona, text)
}

// recoveryPrompt composes the feedback-augmented prompt for re-answering a
// question whose previous answer was rated unhelpful. With neither condition
// set it degrades to the plain free prompt.
func recoveryPrompt(text string, needsSimplify, othersStruggled bool) string {
	if !needsSimplify && !othersStruggled {
		return freePrompt(text)
	}

	var instructions []string
	if needsSimplify {
		instructions = append(instructions,
			"A última resposta não ajudou o usuário. Explique de forma mais simples, em passos curtos, usando um exemplo do cotidiano.")
	}
	if othersStruggled {
		instructions = append(instructions,
			"Outros usuários também tiveram dificuldade com este assunto. Ofereça um segundo estilo de explicação, diferente do habitual.")
	}
	instructions = append(instructions,
		"Ao final, pergunte se o usuário gostaria de mais um exemplo.")

	return fmt.Sprintf("%s\n\n%s\n\nPergunta do usuário: %q\nSua resposta:",
		persona, strings.Join(instructions, "\n"), text)
}
