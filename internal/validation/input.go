package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinNameLength               = 2
	MaxNameLength               = 100
	MinProjectTitleLength       = 3
	MaxProjectTitleLength       = 200
	MinProjectDescriptionLength = 10
	MaxProjectDescriptionLength = 5000
	MinBidProposalLength        = 10
	MaxBidProposalLength        = 2000
	MinDisputeDescriptionLength = 10
	MaxDisputeDescriptionLength = 5000
	MaxResolutionSummaryLength  = 2000
	MaxChecklistItemLength      = 500
	MaxChecklistItemsCount      = 50
	MaxSkillLength              = 50
	MaxSkillsCount              = 50
	MinAmount                   = 0.0
	MaxAmount                   = 100000000.0 // 100 миллионов
	MinDays                     = 1
	MaxDays                     = 3650
	MaxExternalLinkLength       = 500
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	// Базовая проверка формата
	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("доменная часть email должна содержать точку")
	}

	// Проверка на валидные символы в локальной части
	emailRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !emailRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	// Проверка на валидные символы в доменной части
	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateName проверяет отображаемое имя пользователя.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("имя обязательно")
	}

	name = strings.TrimSpace(name)

	if err := ValidateLength("имя", name, MinNameLength, MaxNameLength); err != nil {
		return err
	}

	// Только буквы, цифры, пробелы и некоторые спецсимволы
	nameRegex := regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ0-9\s\-_.,!?()]+$`)
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("имя содержит недопустимые символы")
	}

	return nil
}

// ValidateProjectTitle проверяет заголовок проекта.
func ValidateProjectTitle(title string) error {
	if title == "" {
		return fmt.Errorf("заголовок проекта обязателен")
	}

	title = strings.TrimSpace(title)

	if err := ValidateLength("заголовок проекта", title, MinProjectTitleLength, MaxProjectTitleLength); err != nil {
		return err
	}

	return nil
}

// ValidateProjectDescription проверяет описание проекта.
func ValidateProjectDescription(description string) error {
	if description == "" {
		return fmt.Errorf("описание проекта обязательно")
	}

	description = strings.TrimSpace(description)

	if err := ValidateLength("описание проекта", description, MinProjectDescriptionLength, MaxProjectDescriptionLength); err != nil {
		return err
	}

	return nil
}

// ValidateBidProposal проверяет сопроводительное письмо отклика.
func ValidateBidProposal(proposal string) error {
	if proposal == "" {
		return fmt.Errorf("сопроводительное письмо обязательно")
	}

	proposal = strings.TrimSpace(proposal)

	if err := ValidateLength("сопроводительное письмо", proposal, MinBidProposalLength, MaxBidProposalLength); err != nil {
		return err
	}

	return nil
}

// ValidateAmount проверяет денежную сумму.
func ValidateAmount(fieldName string, amount float64) error {
	if amount <= MinAmount {
		return fmt.Errorf("%s должна быть положительной", fieldName)
	}
	if amount > MaxAmount {
		return fmt.Errorf("%s не может превышать %.0f", fieldName, MaxAmount)
	}
	return nil
}

// ValidateDays проверяет срок выполнения в днях.
func ValidateDays(days int) error {
	if days < MinDays {
		return fmt.Errorf("срок выполнения должен быть не менее %d дня", MinDays)
	}
	if days > MaxDays {
		return fmt.Errorf("срок выполнения не может превышать %d дней", MaxDays)
	}
	return nil
}

// ValidateSkills проверяет массив навыков.
func ValidateSkills(skills []string) error {
	if len(skills) > MaxSkillsCount {
		return fmt.Errorf("количество навыков не может превышать %d", MaxSkillsCount)
	}

	seen := make(map[string]bool)
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			return fmt.Errorf("навык не может быть пустым")
		}

		if utf8.RuneCountInString(skill) > MaxSkillLength {
			return fmt.Errorf("навык не может быть длиннее %d символов", MaxSkillLength)
		}

		// Проверка на дубликаты (без учета регистра)
		skillLower := strings.ToLower(skill)
		if seen[skillLower] {
			return fmt.Errorf("навык '%s' указан дважды", skill)
		}
		seen[skillLower] = true
	}

	return nil
}

// ValidateChecklist проверяет чеклист приёмки проекта.
func ValidateChecklist(items []string) error {
	if len(items) > MaxChecklistItemsCount {
		return fmt.Errorf("количество пунктов чеклиста не может превышать %d", MaxChecklistItemsCount)
	}

	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			return fmt.Errorf("пункт чеклиста не может быть пустым")
		}
		if utf8.RuneCountInString(item) > MaxChecklistItemLength {
			return fmt.Errorf("пункт чеклиста не может быть длиннее %d символов", MaxChecklistItemLength)
		}
	}

	return nil
}

// ValidateExternalLink проверяет внешнюю ссылку.
func ValidateExternalLink(link string) error {
	if link == "" {
		return fmt.Errorf("ссылка обязательна")
	}

	link = strings.TrimSpace(link)

	if err := ValidateLength("ссылка", link, 0, MaxExternalLinkLength); err != nil {
		return err
	}

	parsedURL, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("некорректный формат URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("ссылка должна начинаться с http:// или https://")
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("ссылка должна содержать доменное имя")
	}

	return nil
}

// ValidateDisputeDescription проверяет описание спора.
func ValidateDisputeDescription(description string) error {
	if description == "" {
		return fmt.Errorf("описание спора обязательно")
	}

	description = strings.TrimSpace(description)

	if err := ValidateLength("описание спора", description, MinDisputeDescriptionLength, MaxDisputeDescriptionLength); err != nil {
		return err
	}

	return nil
}

// ValidateResolutionSummary проверяет резюме решения по спору.
func ValidateResolutionSummary(summary string) error {
	if summary == "" {
		return fmt.Errorf("резюме решения обязательно")
	}

	summary = strings.TrimSpace(summary)

	if err := ValidateLength("резюме решения", summary, 0, MaxResolutionSummaryLength); err != nil {
		return err
	}

	return nil
}
