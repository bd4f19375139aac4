// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, account, production, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeFarmNotResolved       = "FARM_NOT_RESOLVED"
	ErrCodeInvalidRecord         = "INVALID_RECORD"
	ErrCodeRecordNotFound        = "RECORD_NOT_FOUND"
	ErrCodeSecondaryNotFound     = "SECONDARY_ACCOUNT_NOT_FOUND"
	ErrCodeSecondarySaveFailed   = "SECONDARY_ACCOUNT_SAVE_FAILED"
	ErrCodeDuplicateLogin        = "DUPLICATE_LOGIN"
	ErrCodeInvalidSecondaryInput = "INVALID_SECONDARY_INPUT"
	ErrCodeSwitchFailed          = "SWITCH_ACCOUNT_FAILED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Usuário não autenticado.",
		Category: "auth",
		Action:   "Por favor, faça login novamente.",
	}
}

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Credenciais inválidas.",
		Category: "auth",
		Action:   "Verifique o email e a senha e tente novamente.",
	}
}

// NewUserNotFoundError はユーザーが見つからない、または無効化されている場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "Usuário não encontrado no sistema.",
		Category: "auth",
		Action:   "Complete o cadastro primeiro.",
	}
}

// NewFarmNotResolvedError は所属農場を特定できない場合のエラーを生成する。
func NewFarmNotResolvedError() *APIError {
	return &APIError{
		Code:     ErrCodeFarmNotResolved,
		Message:  "Não foi possível identificar a fazenda do usuário.",
		Category: "auth",
		Action:   "Verifique o cadastro do usuário ou faça login novamente.",
	}
}

// NewInvalidRecordError は生産記録の入力不正エラーを生成する。
func NewInvalidRecordError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRecord,
		Message:  fmt.Sprintf("Registro de produção inválido: %s", reason),
		Category: "validation",
		Action:   "Corrija os dados do registro e tente novamente.",
	}
}

// NewRecordNotFoundError は生産記録が見つからない場合のエラーを生成する。
func NewRecordNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeRecordNotFound,
		Message:  fmt.Sprintf("Registro não encontrado: %s", id),
		Category: "production",
		Action:   "Atualize o histórico e tente novamente.",
	}
}

// NewSecondaryNotFoundError は副アカウントの関係が見つからない場合のエラーを生成する。
func NewSecondaryNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeSecondaryNotFound,
		Message:  "Relação de conta secundária não encontrada.",
		Category: "account",
		Action:   "Faça login com a conta principal.",
	}
}

// NewSecondarySaveFailedError は副アカウントの保存失敗エラーを生成する。
func NewSecondarySaveFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSecondarySaveFailed,
		Message:  "Erro ao salvar conta secundária.",
		Category: "account",
		Action:   "Por favor, tente novamente.",
	}
}

// NewDuplicateLoginError はログイン識別子の一意制約違反エラーを生成する。
func NewDuplicateLoginError(login string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateLogin,
		Message:  fmt.Sprintf("Já existe um usuário com o email %s.", login),
		Category: "account",
		Action:   "Altere a estratégia de conta secundária ou remova o usuário duplicado.",
	}
}

// NewInvalidSecondaryInputError は副アカウント入力不正エラーを生成する。
func NewInvalidSecondaryInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSecondaryInput,
		Message:  fmt.Sprintf("Dados da conta secundária inválidos: %s", reason),
		Category: "validation",
		Action:   "Informe nome e função válidos.",
	}
}

// NewSwitchFailedError はアカウント切り替え失敗エラーを生成する。
func NewSwitchFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSwitchFailed,
		Message:  "Ocorreu um erro ao retornar para a conta principal.",
		Category: "account",
		Action:   "Por favor, tente novamente.",
	}
}
