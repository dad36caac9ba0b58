package mail

import (
	"fmt"
	"time"
)

const ResetCodeSubject = "CPF: Clave provisoria para restablecer tu contraseña"

// ResetCodeBody renders the plain-text reset email.
func ResetCodeBody(msg ResetCodeMessage, appURL string) string {
	minutes := int(msg.ValidFor / time.Minute)
	return fmt.Sprintf(`Hola %s,

Recibimos un pedido de restablecimiento de contraseña en CPF (Sistema de Requerimientos sin precios).

Tu CLAVE PROVISORIA es:
%s

Vigencia: %d minutos.

Cómo usarla:
1) Ingresá a CPF: %s
2) En el panel de inicio, hacé clic en "Olvidé mi contraseña".
3) Completá tus datos (Nombre/Empresa/Teléfono/Cámara) y pegá esta clave.
4) Definí tu nueva contraseña.

Si vos NO solicitaste este cambio, podés ignorar este correo. Nadie puede cambiar tu contraseña sin acceso a tu email.

Saludos,
CPF – Sistema de Requerimientos (sin precios)

*** IMPORTANTE: Por favor NO respondas este correo. Es una notificación automática. ***
`, msg.Name, msg.Code, minutes, appURL)
}
